// Command motion serves the comparison API and stores every run in SQLite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/motion.report/internal/api"
	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "motion.db", "Path to the SQLite database")
	configPath  = flag.String("config", "", "Comparison config file (.json, .yaml or .yml)")
	env         = flag.String("env", "prod", "Logging environment: prod, dev or local")
	logLevel    = flag.String("log-level", "", "Override the log level (debug, info, warn, error)")
	outputDir   = flag.String("output", "", "Write per-run artifacts under this directory")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig returns the defaults overlaid with the config file, if any.
func loadConfig(path string) (*config.ComparisonConfig, error) {
	cfg := config.DefaultComparisonConfig()
	if path == "" {
		return cfg, nil
	}
	fileCfg, err := config.LoadComparisonConfig(path)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(fileCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newHandler mounts the API router and the database admin routes on one mux.
func newHandler(database *db.DB, cfg *config.ComparisonConfig, output string) (http.Handler, error) {
	params, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode comparison params: %w", err)
	}

	opts := []api.Option{api.WithParams(params)}
	if output != "" {
		if err := os.MkdirAll(output, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		opts = append(opts, api.WithArtifacts(fsutil.OSFileSystem{}, output))
	}

	engine := motion.NewEngine(cfg.ToEngineOptions())
	router := api.NewServer(database, engine, opts...).Router()

	mux := http.NewServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return nil, fmt.Errorf("attach admin routes: %w", err)
	}
	mux.Handle("/", router)
	return mux, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("motion %s\n", version.String())
		return
	}

	logger, err := monitoring.NewLogger(*env, *logLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	monitoring.UseZap(logger)
	monitoring.RegisterMetrics(nil)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	handler, err := newHandler(database, cfg, *outputDir)
	if err != nil {
		log.Fatalf("failed to build HTTP handler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:              *listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			monitoring.Logf("motion %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				monitoring.Logf("HTTP server force close error: %v", err)
			}
		}
		monitoring.Logf("HTTP server routine stopped")
	}()

	wg.Wait()
	monitoring.Logf("Graceful shutdown complete")
}
