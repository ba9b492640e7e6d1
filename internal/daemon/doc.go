// Package daemon runs the directory mode lifecycle: take the single-instance
// lock, prune old logs, start the live monitor, run the initial batch, then
// keep the monitor running until the context is cancelled. The monitor and the
// batch overlap; the dispatcher's per-image claim keeps them from muxing the
// same pair twice.
//
// The flock-based lock keeps two motionmux processes from sharing one ledger
// file, since the ledger only serializes writers inside a process.
package daemon
