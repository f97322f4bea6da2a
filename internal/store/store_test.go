package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/capsulefit/internal/capsule"
	"github.com/banshee-data/capsulefit/internal/geom"
	"github.com/banshee-data/capsulefit/internal/monitoring"
	"github.com/banshee-data/capsulefit/internal/nlp"
	"github.com/google/go-cmp/cmp"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	db, err := Open(filepath.Join(t.TempDir(), "fits.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	latest, err := LatestMigration()
	if err != nil {
		t.Fatalf("LatestMigration failed: %v", err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d clean", version, dirty, latest)
	}
	if latest != 2 {
		t.Errorf("latest migration = %d, want 2", latest)
	}

	// Running again is a no-op.
	if err := db.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp failed: %v", err)
	}

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, err = db.MigrateVersion()
	if err != nil || version != 1 {
		t.Errorf("after down: version = %d err = %v, want 1", version, err)
	}
}

func sampleRun() (*FitRun, []nlp.Iterate) {
	run := &FitRun{
		Label:           "cube",
		Solver:          nlp.DefaultSolver,
		Status:          nlp.Optimal.String(),
		PointCount:      8,
		ConstraintCount: 8,
		InitParams:      geom.NewParams(geom.Point{Z: -1}, geom.Point{Z: 1}, 1),
		InitVolume:      10,
		SolutionParams:  geom.NewParams(geom.Point{Z: -0.5}, geom.Point{Z: 0.5}, 0.75),
		SolutionVolume:  3.5,
		MaxViolation:    1e-9,
		Iterations:      3,
		Evaluations:     120,
		Duration:        15 * time.Millisecond,
	}
	history := []nlp.Iterate{
		{Outer: 1, Objective: 5, MaxViolation: 0.1, Penalty: 10, InnerIters: 20},
		{Outer: 2, Objective: 3.6, MaxViolation: 1e-4, Penalty: 100, InnerIters: 12},
		{Outer: 3, Objective: 3.5, MaxViolation: 1e-9, Penalty: 100, InnerIters: 4},
	}
	return run, history
}

func TestFitStoreInsertGet(t *testing.T) {
	s := NewFitStore(openTestDB(t).DB)
	run, history := sampleRun()
	if err := s.Insert(run, history); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if run.RunID == "" || run.CreatedAt == 0 {
		t.Fatalf("Insert did not assign id/created_at: %+v", run)
	}

	got, err := s.Get(run.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if diff := cmp.Diff(run, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	its, err := s.Iterations(run.RunID)
	if err != nil {
		t.Fatalf("Iterations failed: %v", err)
	}
	if diff := cmp.Diff(history, its); diff != "" {
		t.Errorf("Iterations mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestFitStoreListAndDelete(t *testing.T) {
	s := NewFitStore(openTestDB(t).DB)
	var ids []string
	for i := 0; i < 3; i++ {
		run, history := sampleRun()
		run.CreatedAt = int64(1000 + i)
		if err := s.Insert(run, history); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		ids = append(ids, run.RunID)
	}

	runs, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 3 || runs[0].RunID != ids[2] || runs[2].RunID != ids[0] {
		t.Errorf("List order wrong: got %d runs", len(runs))
	}
	runs, err = s.List(2)
	if err != nil || len(runs) != 2 {
		t.Errorf("List(2) = %d runs, err %v", len(runs), err)
	}

	if err := s.Delete(ids[1]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	its, err := s.Iterations(ids[1])
	if err != nil || len(its) != 0 {
		t.Errorf("history survived delete: %d rows, err %v", len(its), err)
	}
	if err := s.Delete(ids[1]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestRunFromResult(t *testing.T) {
	res := &capsule.FitResult{
		Status:         nlp.SolverError,
		Solver:         "stub",
		InitParams:     geom.NewParams(geom.Point{}, geom.Point{X: 1}, 1),
		SolutionParams: geom.NewParams(geom.Point{}, geom.Point{X: 1}, 1),
		Constraints:    4,
		Err:            errors.New("diverged"),
	}
	run := RunFromResult(res, "x", 4)
	if run.Status != "solver_error" || run.Error != "diverged" || run.PointCount != 4 || run.ConstraintCount != 4 {
		t.Errorf("RunFromResult = %+v", run)
	}

	s := NewFitStore(openTestDB(t).DB)
	if err := s.Insert(run, nil); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got, err := s.Get(run.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Error != "diverged" {
		t.Errorf("Error = %q, want diverged", got.Error)
	}
}
