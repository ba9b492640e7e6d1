// Package dispatch walks a directory tree and turns every directory into a
// pairing-and-transform pass.
//
// Run enumerates the root and all of its subdirectories up front, then
// processes them on a bounded errgroup pool. Each pass pairs the directory's
// files against the ledger snapshot, copies unmatched videos into the output
// root, and sends each pair through the transform gateway, recording the image
// in the ledger only after the gateway succeeds. A failing directory does not
// stop its siblings; Run reports the first failure once every pass has
// settled.
//
// ProcessDirectory runs the same single-directory pass for the live monitor,
// and ProcessPair handles an explicit image/video pair.
package dispatch
