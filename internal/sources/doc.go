// Package sources tracks named storage roots: read-write project roots and
// read-only library roots.
//
// The registry persists to _sources/index.json with atomic writes. Two
// invariants hold at all times: library sources are read-only and sandboxed
// under the configured parent directory, and the reserved primary source is
// re-derived from configuration on every read so a tampered registry file can
// never redirect it.
package sources
