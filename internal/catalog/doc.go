// Package catalog owns the per-project index.json: the ordered, path-keyed
// list of known files the API reads, plus incrementally-maintained aggregate
// counts.
//
// Save enforces the unique-relative-path invariant and writes atomically via
// temp-and-rename. Multiple entries may share a content hash (manual
// filesystem copies are legal); deduplication authority lives in the manifest
// package, not here.
package catalog
