package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/capsulefit/internal/capsule"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/nlp"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("store: not found")

// FitRun is one persisted fit.
type FitRun struct {
	RunID           string        `json:"run_id"`
	Label           string        `json:"label,omitempty"`
	Solver          string        `json:"solver"`
	Status          string        `json:"status"`
	PointCount      int           `json:"point_count"`
	ConstraintCount int           `json:"constraint_count"`
	InitParams      geom.Params   `json:"init_params"`
	InitVolume      float64       `json:"init_volume"`
	SolutionParams  geom.Params   `json:"solution_params"`
	SolutionVolume  float64       `json:"solution_volume"`
	MaxViolation    float64       `json:"max_violation"`
	Iterations      int           `json:"iterations"`
	Evaluations     int           `json:"evaluations"`
	Duration        time.Duration `json:"duration_ns"`
	Error           string        `json:"error,omitempty"`
	CreatedAt       int64         `json:"created_at"`
}

// RunFromResult converts a fit result into a FitRun ready to insert.
func RunFromResult(res *capsule.FitResult, label string, points int) *FitRun {
	run := &FitRun{
		Label:           label,
		Solver:          res.Solver,
		Status:          res.Status.String(),
		PointCount:      points,
		ConstraintCount: res.Constraints,
		InitParams:      res.InitParams,
		InitVolume:      res.InitVolume,
		SolutionParams:  res.SolutionParams,
		SolutionVolume:  res.SolutionVolume,
		MaxViolation:    res.MaxViolation,
		Iterations:      res.Iterations,
		Evaluations:     res.Evaluations,
		Duration:        res.Duration,
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	return run
}

// FitStore provides persistence for fit runs.
type FitStore struct {
	db *sql.DB
}

// NewFitStore creates a new FitStore.
func NewFitStore(db *sql.DB) *FitStore {
	return &FitStore{db: db}
}

// Insert persists run and its iteration history in one transaction. If
// RunID is empty, a UUID is generated.
func (s *FitStore) Insert(run *FitRun, history []nlp.Iterate) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}
	initJSON, err := json.Marshal(run.InitParams)
	if err != nil {
		return fmt.Errorf("marshal init params: %w", err)
	}
	solJSON, err := json.Marshal(run.SolutionParams)
	if err != nil {
		return fmt.Errorf("marshal solution params: %w", err)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO fit_runs (
				run_id, label, solver, status, point_count, constraint_count,
				init_params, init_volume, solution_params, solution_volume,
				max_violation, iterations, evaluations, duration_ns, error, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, nullString(run.Label), run.Solver, run.Status, run.PointCount, run.ConstraintCount,
			string(initJSON), run.InitVolume, string(solJSON), run.SolutionVolume,
			run.MaxViolation, run.Iterations, run.Evaluations, int64(run.Duration), nullString(run.Error), run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert fit run: %w", err)
		}
		for _, it := range history {
			if _, err := tx.Exec(`
				INSERT INTO fit_iterations (
					run_id, outer_iter, objective, max_violation, penalty, inner_iterations
				) VALUES (?, ?, ?, ?, ?, ?)`,
				run.RunID, it.Outer, it.Objective, it.MaxViolation, it.Penalty, it.InnerIters,
			); err != nil {
				return fmt.Errorf("insert iteration %d: %w", it.Outer, err)
			}
		}
		return tx.Commit()
	})
}

const selectRun = `
	SELECT run_id, label, solver, status, point_count, constraint_count,
	       init_params, init_volume, solution_params, solution_volume,
	       max_violation, iterations, evaluations, duration_ns, error, created_at
	FROM fit_runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*FitRun, error) {
	var r FitRun
	var label, errText sql.NullString
	var maxViol sql.NullFloat64
	var initJSON, solJSON string
	var durationNs int64
	if err := sc.Scan(
		&r.RunID, &label, &r.Solver, &r.Status, &r.PointCount, &r.ConstraintCount,
		&initJSON, &r.InitVolume, &solJSON, &r.SolutionVolume,
		&maxViol, &r.Iterations, &r.Evaluations, &durationNs, &errText, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(initJSON), &r.InitParams); err != nil {
		return nil, fmt.Errorf("decode init params of %s: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(solJSON), &r.SolutionParams); err != nil {
		return nil, fmt.Errorf("decode solution params of %s: %w", r.RunID, err)
	}
	r.Label = label.String
	r.Error = errText.String
	r.MaxViolation = maxViol.Float64
	r.Duration = time.Duration(durationNs)
	return &r, nil
}

// Get returns a single run by ID.
func (s *FitStore) Get(runID string) (*FitRun, error) {
	r, err := scanRun(s.db.QueryRow(selectRun+` WHERE run_id = ?`, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fit run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("scan fit run: %w", err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. limit <= 0 means all.
func (s *FitStore) List(limit int) ([]*FitRun, error) {
	query := selectRun + ` ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fit runs: %w", err)
	}
	defer rows.Close()

	var runs []*FitRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fit run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Iterations returns the stored history of a run in outer-iteration order.
func (s *FitStore) Iterations(runID string) ([]nlp.Iterate, error) {
	rows, err := s.db.Query(`
		SELECT outer_iter, objective, max_violation, penalty, inner_iterations
		FROM fit_iterations
		WHERE run_id = ?
		ORDER BY outer_iter`, runID)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	var out []nlp.Iterate
	for rows.Next() {
		var it nlp.Iterate
		if err := rows.Scan(&it.Outer, &it.Objective, &it.MaxViolation, &it.Penalty, &it.InnerIters); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Delete removes a run and, by cascade, its history.
func (s *FitStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`DELETE FROM fit_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete fit run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("fit run %s: %w", runID, ErrNotFound)
		}
		return nil
	})
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
