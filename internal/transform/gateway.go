package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingInput reports that a request names an image or video that does
// not exist.
var ErrMissingInput = errors.New("transform input missing")

// Status describes what a transform did.
type Status string

const (
	StatusMuxed   Status = "muxed"
	StatusCopied  Status = "copied"
	StatusSkipped Status = "skipped"
)

const (
	// motionSuffix is inserted before the extension when the output sits
	// beside the source image.
	motionSuffix = "_motion"
	tempPrefix   = ".motionmux-"
)

// IsTempArtifact reports whether name is a temporary muxer output.
func IsTempArtifact(name string) bool {
	return strings.HasPrefix(filepath.Base(name), tempPrefix)
}

// Request describes a single transform.
type Request struct {
	Image       string // source still image
	Video       string // paired motion video; empty for image-only requests
	OutputDir   string // directory for the output, named after the image
	OutputFile  string // explicit output path; wins over OutputDir
	DeleteVideo bool
	KeepTemp    bool
	Overwrite   bool
	Verbose     bool
}

// HasVideo reports whether the request carries a video.
func (r Request) HasVideo() bool {
	return strings.TrimSpace(r.Video) != ""
}

// Result reports the outcome of a transform.
type Result struct {
	Status       Status
	Output       string // final output path; empty when skipped
	TempPath     string // temporary artifact left behind when KeepTemp is set
	VideoDeleted bool
}

// Gateway converts requests into motion photos.
type Gateway interface {
	Transform(ctx context.Context, req Request) (Result, error)
}

// Validate checks that the request is internally consistent and that its
// inputs exist.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Image) == "" {
		return fmt.Errorf("%w: image path is required", ErrMissingInput)
	}
	if r.Overwrite && (r.OutputDir != "" || r.OutputFile != "") {
		return errors.New("overwrite cannot be combined with an output file or directory")
	}
	if err := requireFile(r.Image); err != nil {
		return err
	}
	if r.HasVideo() {
		if err := requireFile(r.Video); err != nil {
			return err
		}
	}
	return nil
}

// ResolveOutput returns where the request's output will be written, or "" when
// an image-only request has nowhere to go.
func (r Request) ResolveOutput() string {
	if r.OutputFile != "" {
		return r.OutputFile
	}
	if r.OutputDir != "" {
		return filepath.Join(r.OutputDir, filepath.Base(r.Image))
	}
	if !r.HasVideo() {
		return ""
	}
	if r.Overwrite {
		return r.Image
	}
	dir := filepath.Dir(r.Image)
	name := filepath.Base(r.Image)
	ext := filepath.Ext(name)
	return filepath.Join(dir, strings.TrimSuffix(name, ext)+motionSuffix+ext)
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrMissingInput, path)
	}
	return nil
}
