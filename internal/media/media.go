package media

import (
	"path/filepath"
	"strings"
)

// Kind distinguishes still images from motion videos.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// imageExtensions and videoExtensions are compared against lower-cased
// extensions.
var (
	imageExtensions = map[string]struct{}{
		".heic": {},
		".heif": {},
		".avif": {},
		".jpg":  {},
		".jpeg": {},
	}
	videoExtensions = map[string]struct{}{
		".mp4": {},
		".mov": {},
	}
)

// videoPairingSuffixes is the fixed preference order tried when looking for the
// video that shares an image's base name.
var videoPairingSuffixes = []string{".mp4", ".mov", ".MP4", ".MOV"}

// File is a classified directory entry. Values are immutable once built.
type File struct {
	Path string // absolute path
	Name string // file name including extension
	Base string // file name without extension, case preserved
	Ext  string // extension as found on disk, including the dot
	Kind Kind
}

// Classify returns the kind of a file name, or false when it is neither an
// image nor a video.
func Classify(name string) (Kind, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", false
	}
	if _, ok := imageExtensions[ext]; ok {
		return KindImage, true
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo, true
	}
	return "", false
}

// NewFile classifies path and returns the resulting File. path should already
// be absolute.
func NewFile(path string) (File, bool) {
	name := filepath.Base(path)
	kind, ok := Classify(name)
	if !ok {
		return File{}, false
	}
	ext := filepath.Ext(name)
	return File{
		Path: path,
		Name: name,
		Base: strings.TrimSuffix(name, ext),
		Ext:  ext,
		Kind: kind,
	}, true
}

// VideoCandidates returns the video file names that may belong to an image
// with the given base name, in preference order.
func VideoCandidates(base string) []string {
	names := make([]string, len(videoPairingSuffixes))
	for i, suffix := range videoPairingSuffixes {
		names[i] = base + suffix
	}
	return names
}

// IsImage reports whether name has a recognised image extension.
func IsImage(name string) bool {
	kind, ok := Classify(name)
	return ok && kind == KindImage
}

// IsVideo reports whether name has a recognised video extension.
func IsVideo(name string) bool {
	kind, ok := Classify(name)
	return ok && kind == KindVideo
}
