// Package media holds the static classification policy for still images and
// motion videos.
//
// The extension sets and the ordered case variants used when looking for a
// video that belongs to an image live here as tables, so the whole policy can
// be read and tested in one place.
package media
