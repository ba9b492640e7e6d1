// Package pairing groups the media files of one directory into image/video
// pairs and leftover videos.
package pairing

import (
	"fmt"
	"os"
	"path/filepath"

	"motionmux/internal/ledger"
	"motionmux/internal/media"
	"motionmux/internal/transform"
)

// Pair is an image plus the video that shares its base name, if any.
type Pair struct {
	Image media.File
	Video *media.File
}

// HasVideo reports whether the pair carries a motion video.
func (p Pair) HasVideo() bool {
	return p.Video != nil
}

// VideoPath returns the paired video path or "".
func (p Pair) VideoPath() string {
	if p.Video == nil {
		return ""
	}
	return p.Video.Path
}

// Result is the outcome of pairing a single directory.
type Result struct {
	Dir       string
	Pairs     []Pair
	Unmatched []media.File
	// Skipped counts images already present in the ledger.
	Skipped int
}

// Snapshotter exposes a consistent view of the processed-image ledger.
type Snapshotter interface {
	Snapshot() map[string]ledger.Entry
}

// Pairer scans directories against the ledger.
type Pairer struct {
	ledger Snapshotter
}

// New constructs a Pairer backed by the supplied ledger.
func New(l Snapshotter) *Pairer {
	return &Pairer{ledger: l}
}

// Scan pairs the files directly inside dir, skipping images the ledger already
// knows about.
func (p *Pairer) Scan(dir string) (Result, error) {
	var processed map[string]ledger.Entry
	if p != nil && p.ledger != nil {
		processed = p.ledger.Snapshot()
	}
	return Scan(dir, processed)
}

// Scan lists dir (non-recursively) and builds its pairs. Entries are visited in
// lexical name order, so when two images share a base name the first one
// claims the video and the second becomes image-only. Muxer temp artifacts are
// never paired.
func Scan(dir string, processed map[string]ledger.Entry) (Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", dir, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return Result{}, fmt.Errorf("list %s: %w", abs, err)
	}

	var images []media.File
	var videos []media.File
	for _, entry := range entries {
		if transform.IsTempArtifact(entry.Name()) || !isRegular(abs, entry) {
			continue
		}
		file, ok := media.NewFile(filepath.Join(abs, entry.Name()))
		if !ok {
			continue
		}
		switch file.Kind {
		case media.KindImage:
			images = append(images, file)
		case media.KindVideo:
			videos = append(videos, file)
		}
	}

	pool := make(map[string]int, len(videos))
	for i, video := range videos {
		pool[video.Name] = i
	}
	consumed := make([]bool, len(videos))

	result := Result{Dir: abs}
	imageBases := make(map[string]struct{}, len(images))
	for _, image := range images {
		if _, done := processed[image.Path]; done {
			result.Skipped++
			continue
		}
		imageBases[image.Base] = struct{}{}

		pair := Pair{Image: image}
		for _, candidate := range media.VideoCandidates(image.Base) {
			idx, ok := pool[candidate]
			if !ok {
				continue
			}
			delete(pool, candidate)
			consumed[idx] = true
			video := videos[idx]
			pair.Video = &video
			break
		}
		result.Pairs = append(result.Pairs, pair)
	}

	for i, video := range videos {
		if consumed[i] {
			continue
		}
		if _, shared := imageBases[video.Base]; shared {
			continue
		}
		result.Unmatched = append(result.Unmatched, video)
	}
	return result, nil
}

// isRegular follows symlinks so linked media is treated like the file it
// points at.
func isRegular(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}
