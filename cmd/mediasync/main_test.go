package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "mediasync.toml")
	content := fmt.Sprintf(`[paths]
projects_root = %q
sources_parent_root = %q
cache_root = %q
log_dir = %q

[reconcile]
auto_enabled = false

[orientation]
enabled = false
`,
		filepath.Join(base, "projects"),
		filepath.Join(base, "libraries"),
		filepath.Join(base, "cache"),
		filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "libraries"), 0o755); err != nil {
		t.Fatalf("mkdir libraries: %v", err)
	}
	return configPath
}

func execute(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestProjectCreateAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := execute(t, configPath, "project", "create", "trip", "--notes", "summer")
	if err != nil {
		t.Fatalf("project create: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created project trip") {
		t.Fatalf("unexpected output: %s", out)
	}

	out, err = execute(t, configPath, "project", "list")
	if err != nil {
		t.Fatalf("project list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "trip") {
		t.Fatalf("project missing from listing: %s", out)
	}
}

func TestProjectCreateRejectsDuplicate(t *testing.T) {
	configPath := writeTestConfig(t)

	if out, err := execute(t, configPath, "project", "create", "trip"); err != nil {
		t.Fatalf("project create: %v\n%s", err, out)
	}
	if _, err := execute(t, configPath, "project", "create", "trip"); err == nil {
		t.Fatal("duplicate project create must fail")
	}
}

func TestReconcileCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	if out, err := execute(t, configPath, "project", "create", "trip"); err != nil {
		t.Fatalf("project create: %v\n%s", err, out)
	}

	base := filepath.Dir(configPath)
	mediaPath := filepath.Join(base, "projects", "trip", "ingest", "originals", "a.mp4")
	if err := os.MkdirAll(filepath.Dir(mediaPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(mediaPath, []byte("clip"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	out, err := execute(t, configPath, "reconcile", "trip")
	if err != nil {
		t.Fatalf("reconcile: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Indexed") {
		t.Fatalf("expected result table, got: %s", out)
	}
}

func TestSourcesListIncludesPrimary(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := execute(t, configPath, "sources", "list")
	if err != nil {
		t.Fatalf("sources list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "primary") {
		t.Fatalf("primary source missing: %s", out)
	}
}

func TestSourcesAddRequiresSandbox(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := execute(t, configPath, "sources", "add", "escape", t.TempDir()); err == nil {
		t.Fatal("source outside the sandbox must be rejected")
	}

	libRoot := filepath.Join(filepath.Dir(configPath), "libraries", "nas")
	if err := os.MkdirAll(libRoot, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	out, err := execute(t, configPath, "sources", "add", "nas", libRoot)
	if err != nil {
		t.Fatalf("sources add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Registered source nas") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestConfigShowRunsWithoutConfigFile(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "config", "show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "projects_root") {
		t.Fatalf("expected settings table, got: %s", out.String())
	}
}
