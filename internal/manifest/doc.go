// Package manifest persists the per-project content manifest in SQLite: a
// one-hash-to-one-path map used as the deduplication authority.
//
// The manifest answers "does this exact content already exist" and nothing
// more; it does not enforce global uniqueness of index entries. Record treats
// duplicates as a first-class result rather than an error, and Remove is
// conditional on the stored path so a superseded record is never clobbered.
//
// A coarse in-process mutex serializes access within one process; WAL mode
// covers concurrent readers from outside. The design assumes a single owning
// process per catalog.
package manifest
