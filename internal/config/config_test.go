package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediasync/internal/config"
)

func TestDefaultRoundTripsThroughNormalize(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file to report exists=false")
	}
	if cfg.Reconcile.Interval != 60 {
		t.Fatalf("unexpected reconcile interval: %d", cfg.Reconcile.Interval)
	}
	if cfg.Buckets.Ranking != config.RankingCountFirst {
		t.Fatalf("unexpected ranking: %q", cfg.Buckets.Ranking)
	}
	if !filepath.IsAbs(cfg.Paths.ProjectsRoot) {
		t.Fatalf("projects root not absolute: %q", cfg.Paths.ProjectsRoot)
	}
}

func TestLoadReadsTOMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`projects_root = "` + filepath.Join(dir, "projects") + `"`,
		`sources_parent_root = "` + filepath.Join(dir, "sources") + `"`,
		"[buckets]",
		"max_depth = 3",
		`ranking = "depth_first"`,
		"[logging]",
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Buckets.MaxDepth != 3 || cfg.Buckets.Ranking != config.RankingDepthFirst {
		t.Fatalf("bucket overrides not applied: %+v", cfg.Buckets)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging override not applied: %q", cfg.Logging.Format)
	}
	if cfg.Buckets.MinFiles != 3 {
		t.Fatalf("expected default min_files, got %d", cfg.Buckets.MinFiles)
	}
}

func TestValidateRejectsBadRanking(t *testing.T) {
	cfg := config.Default()
	cfg.Buckets.Ranking = "biggest"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown ranking")
	}
}

func TestValidateRejectsOverlappingRoots(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ProjectsRoot = "/data/media"
	cfg.Paths.SourcesParentRoot = "/data/media"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when roots collide")
	}
}
