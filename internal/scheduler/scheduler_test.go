package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mediasync/internal/reconcile"
	"mediasync/internal/scheduler"
	"mediasync/internal/testsupport"
)

type recordingRunner struct {
	mu       sync.Mutex
	runs     []string
	failures int
}

func (r *recordingRunner) Run(_ context.Context, project string) (reconcile.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, project)
	if r.failures > 0 {
		r.failures--
		return reconcile.Result{}, errors.New("reconcile exploded")
	}
	return reconcile.Result{RunID: "test-run", Project: project, Indexed: 1}, nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func TestSweepPrimesOnFirstObservation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	projectRoot := testsupport.NewProject(t, cfg, "trip")
	testsupport.WriteFile(t, projectRoot, "ingest/originals/a.mp4", "clip-a")

	runner := &recordingRunner{}
	sched := scheduler.New(cfg, nil, runner)

	triggered, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if triggered != 0 || runner.count() != 0 {
		t.Fatalf("first sweep must only prime, triggered %d runs", runner.count())
	}
}

func TestSweepTriggersOnChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	projectRoot := testsupport.NewProject(t, cfg, "trip")
	testsupport.WriteFile(t, projectRoot, "ingest/originals/a.mp4", "clip-a")

	runner := &recordingRunner{}
	sched := scheduler.New(cfg, nil, runner)

	if _, err := sched.Sweep(context.Background()); err != nil {
		t.Fatalf("priming sweep: %v", err)
	}

	testsupport.WriteFile(t, projectRoot, "ingest/originals/b.mp4", "clip-b")
	triggered, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if triggered != 1 {
		t.Fatalf("expected 1 triggered run, got %d", triggered)
	}
	if runner.count() != 1 || runner.runs[0] != "trip" {
		t.Fatalf("unexpected runs: %v", runner.runs)
	}
}

func TestSweepRetriesAfterFailedRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	projectRoot := testsupport.NewProject(t, cfg, "trip")
	testsupport.WriteFile(t, projectRoot, "ingest/originals/a.mp4", "clip-a")

	runner := &recordingRunner{failures: 1}
	sched := scheduler.New(cfg, nil, runner)

	if _, err := sched.Sweep(context.Background()); err != nil {
		t.Fatalf("priming sweep: %v", err)
	}
	testsupport.WriteFile(t, projectRoot, "ingest/originals/b.mp4", "clip-b")

	// First attempt fails; the fingerprint must stay put so the next sweep
	// retries without any further tree change.
	triggered, err := sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("failing sweep: %v", err)
	}
	if triggered != 0 || runner.count() != 1 {
		t.Fatalf("failed run should not count as triggered, got triggered=%d runs=%d", triggered, runner.count())
	}

	triggered, err = sched.Sweep(context.Background())
	if err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if triggered != 1 || runner.count() != 2 {
		t.Fatalf("expected a retry on the unchanged tree, got triggered=%d runs=%d", triggered, runner.count())
	}

	if _, err := sched.Sweep(context.Background()); err != nil {
		t.Fatalf("quiet sweep: %v", err)
	}
	if runner.count() != 2 {
		t.Fatalf("successful run must settle the fingerprint, got %d runs", runner.count())
	}
}

func TestSweepIsQuietWhileUnchanged(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	projectRoot := testsupport.NewProject(t, cfg, "trip")
	testsupport.WriteFile(t, projectRoot, "ingest/originals/a.mp4", "clip-a")

	runner := &recordingRunner{}
	sched := scheduler.New(cfg, nil, runner)

	for i := 0; i < 3; i++ {
		if _, err := sched.Sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}
	if runner.count() != 0 {
		t.Fatalf("unchanged tree must not trigger runs, got %d", runner.count())
	}
}

func TestSweepSkipsDirectoriesWithoutIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteFile(t, cfg.Paths.ProjectsRoot, "not-a-project/ingest/originals/a.mp4", "clip-a")
	testsupport.WriteFile(t, cfg.Paths.ProjectsRoot, "_sources/index.json", "[]")

	runner := &recordingRunner{}
	sched := scheduler.New(cfg, nil, runner)

	for i := 0; i < 2; i++ {
		if _, err := sched.Sweep(context.Background()); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}
	if runner.count() != 0 {
		t.Fatalf("non-projects must never be reconciled, got %d runs", runner.count())
	}
}

func TestStartRespectsAutoEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Reconcile.AutoEnabled = false

	sched := scheduler.New(cfg, nil, &recordingRunner{})
	sched.Start(context.Background())
	// Stop on a never-started scheduler must not block or panic.
	sched.Stop()
}
