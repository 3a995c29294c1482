package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.report/internal/motion"
)

// ErrRunNotFound is returned when no comparison run has the requested ID.
var ErrRunNotFound = errors.New("comparison run not found")

// DefaultListLimit caps ListRuns when the caller passes a non-positive limit.
const DefaultListLimit = 100

// ComparisonRun is one persisted engine invocation.
type ComparisonRun struct {
	RunID                   string              `json:"run_id"`
	CreatedAt               int64               `json:"created_at"`
	UserSource              string              `json:"user_source"`
	ReferenceSource         string              `json:"reference_source"`
	OverallSimilarity       float64             `json:"overall_similarity"`
	TimingAlignment         float64             `json:"timing_alignment"`
	Error                   string              `json:"error,omitempty"`
	UserFrames              int                 `json:"user_frames"`
	UserFramesWithPose      int                 `json:"user_frames_with_pose"`
	ReferenceFrames         int                 `json:"reference_frames"`
	ReferenceFramesWithPose int                 `json:"reference_frames_with_pose"`
	ElapsedNanos            int64               `json:"elapsed_ns"`
	ParamsJSON              json.RawMessage     `json:"params_json,omitempty"`
	Regions                 map[string]float64  `json:"regions,omitempty"`
	Frames                  []motion.FrameScore `json:"frames,omitempty"`
}

// NewComparisonRun builds an unsaved run from an engine report. params is
// stored verbatim and may be nil.
func NewComparisonRun(rep motion.Report, params json.RawMessage) *ComparisonRun {
	run := &ComparisonRun{
		UserSource:        rep.User.Source,
		ReferenceSource:   rep.Reference.Source,
		OverallSimilarity: rep.Result.OverallSimilarity,
		TimingAlignment:   rep.Result.TimingAlignment,
		Error:             rep.Result.Error,
		ElapsedNanos:      int64(rep.Elapsed),
		ParamsJSON:        params,
		Regions:           rep.Result.KeyPointsAnalysis,
		Frames:            rep.Result.FrameByFrame,
	}
	if d := rep.User.Diagnostics; d != nil {
		run.UserFrames = d.TotalFrames
		run.UserFramesWithPose = d.FramesWithPose
	}
	if d := rep.Reference.Diagnostics; d != nil {
		run.ReferenceFrames = d.TotalFrames
		run.ReferenceFramesWithPose = d.FramesWithPose
	}
	return run
}

// Result rebuilds the comparison result the run was created from. Frames and
// regions are only present on runs returned by GetRun.
func (r *ComparisonRun) Result() motion.Result {
	res := motion.NewResult()
	res.OverallSimilarity = r.OverallSimilarity
	res.TimingAlignment = r.TimingAlignment
	res.Error = r.Error
	if r.Frames != nil {
		res.FrameByFrame = r.Frames
	}
	for k, v := range r.Regions {
		res.KeyPointsAnalysis[k] = v
	}
	return res
}

// InsertRun persists run with its frames and regions in one transaction. If
// RunID is empty a UUID is generated; a zero CreatedAt is set from the clock.
func (db *DB) InsertRun(run *ComparisonRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = db.clock.Now().UnixNano()
	}

	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	return db.retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO comparison_runs (
				run_id, created_at, user_source, reference_source,
				overall_similarity, timing_alignment, error,
				user_frames, user_frames_with_pose,
				reference_frames, reference_frames_with_pose,
				elapsed_ns, params_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAt, run.UserSource, run.ReferenceSource,
			run.OverallSimilarity, run.TimingAlignment, run.Error,
			run.UserFrames, run.UserFramesWithPose,
			run.ReferenceFrames, run.ReferenceFramesWithPose,
			run.ElapsedNanos, params,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if len(run.Frames) > 0 {
			stmt, err := tx.Prepare(`INSERT INTO comparison_frames (run_id, seq, frame, similarity) VALUES (?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("prepare frames: %w", err)
			}
			defer stmt.Close()
			for i, f := range run.Frames {
				if _, err := stmt.Exec(run.RunID, i, f.Frame, f.Similarity); err != nil {
					return fmt.Errorf("insert frame %d: %w", i, err)
				}
			}
		}

		for region, score := range run.Regions {
			if _, err := tx.Exec(`INSERT INTO comparison_regions (run_id, region, similarity) VALUES (?, ?, ?)`,
				run.RunID, region, score); err != nil {
				return fmt.Errorf("insert region %s: %w", region, err)
			}
		}

		return tx.Commit()
	})
}

const runColumns = `run_id, created_at, user_source, reference_source,
	overall_similarity, timing_alignment, error,
	user_frames, user_frames_with_pose,
	reference_frames, reference_frames_with_pose,
	elapsed_ns, params_json`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*ComparisonRun, error) {
	var r ComparisonRun
	var params sql.NullString
	if err := row.Scan(
		&r.RunID, &r.CreatedAt, &r.UserSource, &r.ReferenceSource,
		&r.OverallSimilarity, &r.TimingAlignment, &r.Error,
		&r.UserFrames, &r.UserFramesWithPose,
		&r.ReferenceFrames, &r.ReferenceFramesWithPose,
		&r.ElapsedNanos, &params,
	); err != nil {
		return nil, err
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	return &r, nil
}

// GetRun returns a run with its frame trace and region scores.
func (db *DB) GetRun(runID string) (*ComparisonRun, error) {
	run, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM comparison_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	rows, err := db.Query(`SELECT frame, similarity FROM comparison_frames WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()
	run.Frames = []motion.FrameScore{}
	for rows.Next() {
		var f motion.FrameScore
		if err := rows.Scan(&f.Frame, &f.Similarity); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		run.Frames = append(run.Frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	regionRows, err := db.Query(`SELECT region, similarity FROM comparison_regions WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer regionRows.Close()
	run.Regions = map[string]float64{}
	for regionRows.Next() {
		var region string
		var score float64
		if err := regionRows.Scan(&region, &score); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		run.Regions[region] = score
	}
	return run, regionRows.Err()
}

// ListRuns returns the most recent runs, newest first, without frame or
// region detail.
func (db *DB) ListRuns(limit int) ([]*ComparisonRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM comparison_runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []*ComparisonRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its detail rows.
func (db *DB) DeleteRun(runID string) error {
	return db.retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, table := range []string{"comparison_frames", "comparison_regions"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		result, err := tx.Exec(`DELETE FROM comparison_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return tx.Commit()
	})
}
