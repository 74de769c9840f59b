// Package reconcile brings a project's catalog index, content manifest, and
// metadata sidecars back into agreement with the files actually on disk. One
// run relocates stray media into the ingest tree, normalizes rotated videos,
// hashes and records everything under ingest, and drops records for files
// that disappeared.
package reconcile
