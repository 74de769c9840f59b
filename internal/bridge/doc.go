// Package bridge stages read-only previews of library sources. A stage scan
// walks a source tree, scores directories as library-root candidates, and
// lives in SQLite until its TTL passes; committing a scan turns selected
// paths into persistent library roots.
package bridge
