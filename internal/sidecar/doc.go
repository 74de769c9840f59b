// Package sidecar stores per-content-hash metadata records under
// ingest/_metadata/<hash>.json.
//
// A sidecar is created on first sight of a hash and refreshed when the file's
// canonical path or size changes. Lifetime is reference-counted by the
// reconciliation engine through hash-set diffing rather than a persisted
// counter: the sidecar is deleted only when no index entry references its
// hash anymore.
package sidecar
