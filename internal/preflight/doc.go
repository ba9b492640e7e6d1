// Package preflight provides readiness checks for the muxer binary and the
// filesystem locations motionmux reads and writes.
//
// The run and mux commands call RunAll before processing so a missing muxer or
// an unwritable output directory fails fast instead of once per image. The
// doctor command renders the same results as a table.
package preflight
