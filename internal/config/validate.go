package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBuckets(); err != nil {
		return err
	}
	if err := c.validateOrientation(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ProjectsRoot == "" {
		return errors.New("paths.projects_root must be set")
	}
	if c.Paths.SourcesParentRoot == "" {
		return errors.New("paths.sources_parent_root must be set")
	}
	if c.Paths.ProjectsRoot == c.Paths.SourcesParentRoot {
		return errors.New("paths.projects_root and paths.sources_parent_root must differ")
	}
	return nil
}

func (c *Config) validateBuckets() error {
	if c.Buckets.OverlapThreshold <= 0 || c.Buckets.OverlapThreshold > 1 {
		return errors.New("buckets.overlap_threshold must be between 0 and 1")
	}
	switch c.Buckets.Ranking {
	case RankingCountFirst, RankingDepthFirst:
	default:
		return fmt.Errorf("buckets.ranking must be %q or %q", RankingCountFirst, RankingDepthFirst)
	}
	return nil
}

func (c *Config) validateOrientation() error {
	if c.Orientation.CRF < 0 || c.Orientation.CRF > 51 {
		return errors.New("orientation.crf must be between 0 and 51")
	}
	if c.Orientation.FastTimeout > c.Orientation.Timeout {
		return errors.New("orientation.fast_timeout must not exceed orientation.timeout")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
