// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediasync/internal/catalog"
	"mediasync/internal/config"
	"mediasync/internal/paths"
)

// NewConfig returns a validated configuration rooted in per-test temp
// directories.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ProjectsRoot = filepath.Join(base, "projects")
	cfg.Paths.SourcesParentRoot = filepath.Join(base, "libraries")
	cfg.Paths.CacheRoot = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(cfg.Paths.SourcesParentRoot, 0o755); err != nil {
		t.Fatalf("create sources parent: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// NewProject seeds an empty project under the configured projects root and
// returns its absolute path.
func NewProject(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()

	projectRoot, err := paths.ProjectPath(cfg.Paths.ProjectsRoot, name)
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	for _, dir := range []string{paths.IngestDir, paths.MetadataDir, paths.ThumbnailDir, paths.ManifestDir} {
		if err := os.MkdirAll(filepath.Join(projectRoot, dir), 0o755); err != nil {
			t.Fatalf("create project dir %s: %v", dir, err)
		}
	}
	if _, err := catalog.Seed(projectRoot, name, ""); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	return projectRoot
}

// WriteFile creates a file with the given content beneath root, making parent
// directories as needed.
func WriteFile(t *testing.T, root, relPath, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
	return path
}
