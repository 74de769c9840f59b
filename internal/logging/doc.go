// Package logging builds slog loggers for the daemon and CLI.
//
// New constructs a logger from explicit Options; NewFromConfig derives those
// options from application config, teeing output to stdout and a log file
// under the configured log directory. Attr helper aliases keep call sites
// terse and let packages avoid importing log/slog directly for attributes.
package logging
