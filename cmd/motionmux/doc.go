// Package main hosts the motionmux CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, the processed-image ledger, the
// history journal and the muxer gateway together, then hands off to the
// dispatch and daemon packages. Directory mode (run) processes a tree once and
// keeps watching it; single-pair mode (mux) handles one explicit image and
// video. Maintenance commands inspect or edit the ledger and journal.
//
// Keep this package lean: behaviour belongs in the internal packages and is
// only surfaced here through flags and output formatting.
package main
