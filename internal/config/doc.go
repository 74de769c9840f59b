// Package config loads, normalizes, and validates mediasync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: project and sandbox roots, reconciliation intervals,
// orientation normalization parameters, and bucket discovery tunables.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
