package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOrientation()
	c.normalizeBuckets()
	c.normalizeStageScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectsRoot) == "" {
		c.Paths.ProjectsRoot = defaultProjectsRoot
	}
	if c.Paths.ProjectsRoot, err = expandPath(c.Paths.ProjectsRoot); err != nil {
		return fmt.Errorf("paths.projects_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.SourcesParentRoot) == "" {
		c.Paths.SourcesParentRoot = defaultSourcesParentRoot
	}
	if c.Paths.SourcesParentRoot, err = expandPath(c.Paths.SourcesParentRoot); err != nil {
		return fmt.Errorf("paths.sources_parent_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheRoot) == "" {
		c.Paths.CacheRoot = defaultCacheRoot
	}
	if c.Paths.CacheRoot, err = expandPath(c.Paths.CacheRoot); err != nil {
		return fmt.Errorf("paths.cache_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOrientation() {
	if c.Orientation.CRF == 0 {
		c.Orientation.CRF = defaultOrientationCRF
	}
	c.Orientation.FastPreset = strings.TrimSpace(c.Orientation.FastPreset)
	if c.Orientation.FastPreset == "" {
		c.Orientation.FastPreset = defaultOrientationFastPreset
	}
	c.Orientation.SafePreset = strings.TrimSpace(c.Orientation.SafePreset)
	if c.Orientation.SafePreset == "" {
		c.Orientation.SafePreset = defaultOrientationSafePreset
	}
	if c.Orientation.FastTimeout <= 0 {
		c.Orientation.FastTimeout = defaultOrientationFastTimeout
	}
	if c.Orientation.Timeout <= 0 {
		c.Orientation.Timeout = defaultOrientationTimeout
	}
	if c.Orientation.ProbeTimeout <= 0 {
		c.Orientation.ProbeTimeout = defaultOrientationProbeTimeout
	}
	if c.Orientation.MinOutputBytes <= 0 {
		c.Orientation.MinOutputBytes = defaultOrientationMinBytes
	}
	c.Orientation.FFmpegBinary = strings.TrimSpace(c.Orientation.FFmpegBinary)
	if c.Orientation.FFmpegBinary == "" {
		c.Orientation.FFmpegBinary = defaultFFmpegBinary
	}
	c.Orientation.FFprobeBinary = strings.TrimSpace(c.Orientation.FFprobeBinary)
	if c.Orientation.FFprobeBinary == "" {
		c.Orientation.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeBuckets() {
	if c.Buckets.MaxDepth <= 0 {
		c.Buckets.MaxDepth = defaultBucketMaxDepth
	}
	if c.Buckets.MinFiles <= 0 {
		c.Buckets.MinFiles = defaultBucketMinFiles
	}
	if c.Buckets.OverlapThreshold <= 0 {
		c.Buckets.OverlapThreshold = defaultBucketOverlap
	}
	if c.Buckets.MaxBuckets <= 0 {
		c.Buckets.MaxBuckets = defaultBucketMax
	}
	c.Buckets.Ranking = strings.ToLower(strings.TrimSpace(c.Buckets.Ranking))
	if c.Buckets.Ranking == "" {
		c.Buckets.Ranking = defaultBucketRanking
	}
}

func (c *Config) normalizeStageScan() {
	if c.StageScan.MaxDepth <= 0 {
		c.StageScan.MaxDepth = defaultStageScanDepth
	}
	if c.StageScan.MinFiles <= 0 {
		c.StageScan.MinFiles = defaultStageScanMin
	}
	if c.StageScan.TTLMinutes <= 0 {
		c.StageScan.TTLMinutes = defaultStageScanTTLMins
	}
	if c.Derive.LockTTL <= 0 {
		c.Derive.LockTTL = defaultDeriveLockTTL
	}
	if c.Reconcile.Interval <= 0 {
		c.Reconcile.Interval = defaultReconcileInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
