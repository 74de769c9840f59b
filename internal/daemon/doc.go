// Package daemon wires the reconcile engine and the auto-reconcile scheduler
// into a single-instance background process guarded by a lock file.
package daemon
