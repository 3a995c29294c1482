package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/fsutil"
	"github.com/banshee-data/motion.report/internal/httputil"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/pose"
	"github.com/banshee-data/motion.report/internal/report"
	"github.com/banshee-data/motion.report/internal/security"
	"github.com/banshee-data/motion.report/internal/version"
)

// ANSI escape codes used by LoggingMiddleware for the path and status code.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Request envelope overhead allowed on top of two documents.
const envelopeBytes = 1 << 20

type Server struct {
	db        *db.DB
	engine    *motion.Engine
	fsys      fsutil.FileSystem
	outputDir string
	params    json.RawMessage
}

// Option configures a Server.
type Option func(*Server)

// WithArtifacts writes comparison_results.json, the PNG plot and the HTML
// chart of every new run to a per-run directory under dir.
func WithArtifacts(fsys fsutil.FileSystem, dir string) Option {
	return func(s *Server) {
		s.fsys = fsys
		s.outputDir = dir
	}
}

// WithParams records the comparison parameters stored alongside each run.
func WithParams(params json.RawMessage) Option {
	return func(s *Server) { s.params = params }
}

func NewServer(database *db.DB, engine *motion.Engine, opts ...Option) *Server {
	s := &Server{db: database, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// Router returns the HTTP handler for the API and the metrics endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(LoggingMiddleware)
	r.Use(monitoring.Middleware())

	r.Get("/api/hello", s.hello)
	r.Get("/api/health", s.health)
	r.Post("/api/compare", s.compare)
	r.Route("/api/comparisons", func(r chi.Router) {
		r.Get("/", s.listComparisons)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getComparison)
			r.Delete("/", s.deleteComparison)
			r.Get("/plot.png", s.comparisonPlot)
			r.Get("/chart", s.comparisonChart)
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.MethodNotAllowed(w)
	})
	return r
}

func (s *Server) hello(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"message": "Hello from motion.report",
		"status":  "success",
		"version": version.Version,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "success", "message": "database reachable"})
}

// CompareRequest carries two landmark documents inline.
type CompareRequest struct {
	UserName      string          `json:"user_name"`
	ReferenceName string          `json:"reference_name"`
	User          json.RawMessage `json:"user"`
	Reference     json.RawMessage `json:"reference"`
}

// Diagnostics describes each input of a comparison.
type Diagnostics struct {
	User      motion.Side `json:"user"`
	Reference motion.Side `json:"reference"`
}

// CompareResponse is returned by POST /api/compare.
type CompareResponse struct {
	RunID        string        `json:"run_id"`
	Comparison   motion.Result `json:"comparison"`
	Diagnostics  Diagnostics   `json:"diagnostics"`
	ArtifactsDir string        `json:"artifacts_dir,omitempty"`
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	limit := 2*s.engine.Options().MaxDocumentBytes + envelopeBytes
	var req CompareRequest
	if err := httputil.DecodeJSONBody(w, r, limit, &req); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		monitoring.ObserveLoadError(pose.KindMalformedEncoding.String())
		httputil.WriteJSONErrorKind(w, status, err.Error(), pose.KindMalformedEncoding.String())
		return
	}
	if req.UserName == "" {
		req.UserName = "user"
	}
	if req.ReferenceName == "" {
		req.ReferenceName = "reference"
	}

	loader := s.engine.Loader(nil)
	user, ok := s.decodeDocument(w, loader, req.User, req.UserName)
	if !ok {
		return
	}
	ref, ok := s.decodeDocument(w, loader, req.Reference, req.ReferenceName)
	if !ok {
		return
	}

	rep := s.engine.CompareInputs(user, ref)
	run := db.NewComparisonRun(rep, s.params)
	if err := s.db.InsertRun(run); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to store comparison: %v", err))
		return
	}

	resp := CompareResponse{
		RunID:       run.RunID,
		Comparison:  rep.Result,
		Diagnostics: Diagnostics{User: rep.User, Reference: rep.Reference},
	}
	if s.outputDir != "" {
		dir, err := s.writeArtifacts(req.UserName, req.ReferenceName, run.RunID, rep.Result)
		if err != nil {
			// the run is stored; artifacts can be rendered again from it
			monitoring.Logf("failed to write artifacts for run %s: %v", run.RunID, err)
		} else {
			resp.ArtifactsDir = dir
		}
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (s *Server) decodeDocument(w http.ResponseWriter, loader *pose.Loader, raw json.RawMessage, name string) (motion.Input, bool) {
	if len(raw) == 0 {
		monitoring.ObserveLoadError(pose.KindMissingSchema.String())
		httputil.WriteJSONErrorKind(w, http.StatusBadRequest,
			fmt.Sprintf("missing landmark document for %s", name), pose.KindMissingSchema.String())
		return motion.Input{}, false
	}
	doc, diag, err := loader.DecodeBytes(raw, name)
	if err != nil {
		kind := pose.KindOf(err).String()
		monitoring.ObserveLoadError(kind)
		httputil.WriteJSONErrorKind(w, http.StatusBadRequest, err.Error(), kind)
		return motion.Input{}, false
	}
	return motion.Input{Source: name, Document: doc, Diagnostics: diag}, true
}

func (s *Server) writeArtifacts(userName, refName, runID string, res motion.Result) (string, error) {
	dir, err := security.ArtifactDir(s.outputDir, userName, refName, runID)
	if err != nil {
		return "", err
	}
	art, err := report.WriteArtifacts(s.fsys, dir, res)
	if err != nil {
		return "", err
	}
	return art.Dir, nil
}

func (s *Server) listComparisons(w http.ResponseWriter, r *http.Request) {
	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list comparisons: %v", err))
		return
	}
	httputil.WriteJSONOK(w, runs)
}

// loadRun fetches the {id} run, writing a 404 or 500 when it cannot.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*db.ComparisonRun, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, fmt.Sprintf("comparison %s not found", id))
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load comparison: %v", err))
		return nil, false
	}
	return run, true
}

func (s *Server) getComparison(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.loadRun(w, r); ok {
		httputil.WriteJSONOK(w, run)
	}
}

func (s *Server) deleteComparison(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.db.DeleteRun(id)
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, fmt.Sprintf("comparison %s not found", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to delete comparison: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) comparisonPlot(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.RenderPlotPNG(&buf, run.Result()); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := buf.WriteTo(w); err != nil {
		monitoring.Logf("failed to write plot: %v", err)
	}
}

func (s *Server) comparisonChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	subtitle := fmt.Sprintf("%s vs %s", run.UserSource, run.ReferenceSource)
	var buf bytes.Buffer
	if err := report.RenderChartHTML(&buf, run.Result(), subtitle); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		monitoring.Logf("failed to write chart: %v", err)
	}
}
