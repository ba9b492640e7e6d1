// Package services defines shared utilities consumed by the dispatcher, the
// live monitor, and the transform gateway.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, directories, and triggers for
//     logging and the history journal.
//   - Structured error markers plus the Wrap helper that classify failures
//     (transform, filesystem, ledger, configuration) consistently.
package services
