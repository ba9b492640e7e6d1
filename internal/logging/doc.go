// Package logging assembles structured slog loggers and formatting helpers used
// across motionmux.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so dispatcher and monitor code
// can tag log lines with run IDs, directories, and triggers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
