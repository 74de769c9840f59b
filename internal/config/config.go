package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ProjectsRoot      string `toml:"projects_root"`
	SourcesParentRoot string `toml:"sources_parent_root"`
	CacheRoot         string `toml:"cache_root"`
	LogDir            string `toml:"log_dir"`
}

// Reconcile contains configuration for the reconciliation engine and the
// background auto-reconcile scheduler.
type Reconcile struct {
	AutoEnabled bool `toml:"auto_enabled"`
	Interval    int  `toml:"interval"`
}

// Orientation contains configuration for rotated-video normalization.
type Orientation struct {
	Enabled        bool   `toml:"enabled"`
	CRF            int    `toml:"crf"`
	FastPreset     string `toml:"fast_preset"`
	SafePreset     string `toml:"safe_preset"`
	FastTimeout    int    `toml:"fast_timeout"`
	Timeout        int    `toml:"timeout"`
	ProbeTimeout   int    `toml:"probe_timeout"`
	MinOutputBytes int64  `toml:"min_output_bytes"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
}

// Buckets contains tunables for library bucket discovery.
type Buckets struct {
	MaxDepth         int     `toml:"max_depth"`
	MinFiles         int     `toml:"min_files"`
	OverlapThreshold float64 `toml:"overlap_threshold"`
	MaxBuckets       int     `toml:"max_buckets"`
	Ranking          string  `toml:"ranking"`
}

// StageScan contains tunables for staging-scan previews of library sources.
type StageScan struct {
	MaxDepth   int `toml:"max_depth"`
	MinFiles   int `toml:"min_files"`
	TTLMinutes int `toml:"ttl_minutes"`
}

// Derive contains configuration for derived cache artifacts.
type Derive struct {
	LockTTL int `toml:"lock_ttl"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mediasync.
//
// Configuration sections by subsystem:
//   - Paths: projects root, library sandbox parent, derived cache, logs
//   - Reconcile: scheduler interval and toggle
//   - Orientation: ffmpeg/ffprobe settings for rotation normalization
//   - Buckets: discovery depth, thresholds, and ranking policy
//   - StageScan: preview tree depth and TTL
//   - Derive: artifact lock lease TTL
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Reconcile   Reconcile   `toml:"reconcile"`
	Orientation Orientation `toml:"orientation"`
	Buckets     Buckets     `toml:"buckets"`
	StageScan   StageScan   `toml:"stagescan"`
	Derive      Derive      `toml:"derive"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediasync/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediasync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon and CLI rely on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProjectsRoot, c.Paths.CacheRoot, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SourcesDir returns the directory holding the source registry and its stores.
func (c *Config) SourcesDir() string {
	return filepath.Join(c.Paths.ProjectsRoot, "_sources")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
