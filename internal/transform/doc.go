// Package transform hands image/video pairs to the external motion photo
// muxer.
//
// Gateway is the seam the dispatcher talks to. CommandGateway runs the
// configured muxer binary against a hidden temporary artifact next to the
// final output and renames it into place once the command succeeds. Requests
// without a video are plain copies of the image into the output location, and
// are skipped when no output location exists.
package transform
