// Package scheduler runs reconciliation in the background. Each sweep
// fingerprints every project's ingest tree and reconciles only the projects
// whose fingerprint moved since the last sweep.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mediasync/internal/config"
	"mediasync/internal/logging"
	"mediasync/internal/paths"
	"mediasync/internal/reconcile"
)

// Runner is the slice of the reconcile engine the scheduler drives.
type Runner interface {
	Run(ctx context.Context, project string) (reconcile.Result, error)
}

// Scheduler periodically sweeps the projects root for changed ingest trees.
type Scheduler struct {
	cfg    *config.Config
	logger *slog.Logger
	runner Runner

	mu         sync.Mutex
	signatures map[string]reconcile.Signature

	stopCh  chan struct{}
	stopped sync.WaitGroup
	started bool
}

// New builds a scheduler around a reconcile runner.
func New(cfg *config.Config, logger *slog.Logger, runner Runner) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "scheduler"),
		runner:     runner,
		signatures: map[string]reconcile.Signature{},
		stopCh:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; Stop joins the loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s.started || !s.cfg.Reconcile.AutoEnabled {
		return
	}
	s.started = true
	interval := time.Duration(s.cfg.Reconcile.Interval) * time.Second

	s.stopped.Add(1)
	go func() {
		defer s.stopped.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error("sweep failed", logging.Error(err))
				}
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("auto-reconcile scheduler started", logging.Duration("interval", interval))
}

// Stop terminates the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	close(s.stopCh)
	s.stopped.Wait()
	s.started = false
}

// Sweep examines every project once and reconciles the changed ones,
// returning how many runs it triggered. The first sighting of a project only
// primes its fingerprint so a daemon restart does not stampede reconciles.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	projects, err := s.listProjects()
	if err != nil {
		return 0, err
	}

	triggered := 0
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return triggered, err
		}
		projectRoot := filepath.Join(s.cfg.Paths.ProjectsRoot, project)
		sig, err := reconcile.ComputeSignature(projectRoot)
		if err != nil {
			s.logger.Warn("signature failed",
				logging.String("project", project),
				logging.Error(err))
			continue
		}

		s.mu.Lock()
		previous, seen := s.signatures[project]
		if !seen {
			s.signatures[project] = sig
		}
		s.mu.Unlock()

		if !seen || previous == sig {
			continue
		}

		result, err := s.runner.Run(ctx, project)
		if err != nil {
			// Keep the old fingerprint so the next sweep retries the run.
			s.logger.Error("auto-reconcile failed",
				logging.String("project", project),
				logging.Error(err))
			continue
		}
		triggered++
		s.logger.Info("auto-reconcile triggered",
			logging.String("project", project),
			logging.String("run_id", result.RunID),
			logging.Int("indexed", result.Indexed),
			logging.Int("removed", result.Removed))

		// Reconciling mutates the tree (relocation, normalization); refresh
		// the fingerprint so the next sweep does not re-trigger.
		after, err := reconcile.ComputeSignature(projectRoot)
		if err != nil {
			after = sig
		}
		s.mu.Lock()
		s.signatures[project] = after
		s.mu.Unlock()
	}
	return triggered, nil
}

// listProjects returns the names of directories under the projects root that
// carry a catalog index.
func (s *Scheduler) listProjects() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Paths.ProjectsRoot)
	if err != nil {
		return nil, err
	}
	var projects []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		indexPath := filepath.Join(s.cfg.Paths.ProjectsRoot, name, paths.IndexFile)
		if _, err := os.Stat(indexPath); err != nil {
			continue
		}
		projects = append(projects, name)
	}
	return projects, nil
}
