package pairing_test

import (
	"os"
	"path/filepath"
	"testing"

	"motionmux/internal/ledger"
	"motionmux/internal/pairing"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

type pairView struct {
	image string
	video string
}

func view(result pairing.Result) ([]pairView, []string) {
	pairs := make([]pairView, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		v := pairView{image: p.Image.Name}
		if p.HasVideo() {
			v.video = p.Video.Name
		}
		pairs = append(pairs, v)
	}
	unmatched := make([]string, 0, len(result.Unmatched))
	for _, u := range result.Unmatched {
		unmatched = append(unmatched, u.Name)
	}
	return pairs, unmatched
}

func TestScan(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		pairs     []pairView
		unmatched []string
	}{
		{
			name:  "image and video pair",
			files: []string{"a.jpg", "a.mov"},
			pairs: []pairView{{image: "a.jpg", video: "a.mov"}},
		},
		{
			name:  "image alone",
			files: []string{"b.jpg"},
			pairs: []pairView{{image: "b.jpg"}},
		},
		{
			name:      "video alone",
			files:     []string{"c.mp4"},
			unmatched: []string{"c.mp4"},
		},
		{
			name:  "uppercase pair",
			files: []string{"d.JPG", "d.MOV"},
			pairs: []pairView{{image: "d.JPG", video: "d.MOV"}},
		},
		{
			name:  "mp4 preferred over mov",
			files: []string{"e.heic", "e.mov", "e.mp4"},
			pairs: []pairView{{image: "e.heic", video: "e.mp4"}},
		},
		{
			name:  "mixed case extension does not pair",
			files: []string{"f.jpg", "f.Mov"},
			pairs: []pairView{{image: "f.jpg"}},
		},
		{
			name:  "shared base first image claims video",
			files: []string{"g.heic", "g.jpg", "g.mov"},
			pairs: []pairView{{image: "g.heic", video: "g.mov"}, {image: "g.jpg"}},
		},
		{
			name:  "other files ignored",
			files: []string{"notes.txt", "h.png", "i.avif"},
			pairs: []pairView{{image: "i.avif"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tc.files...)
			result, err := pairing.Scan(dir, nil)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			pairs, unmatched := view(result)
			if len(pairs) != len(tc.pairs) {
				t.Fatalf("pairs = %+v, want %+v", pairs, tc.pairs)
			}
			for i := range pairs {
				if pairs[i] != tc.pairs[i] {
					t.Fatalf("pairs = %+v, want %+v", pairs, tc.pairs)
				}
			}
			if len(unmatched) != len(tc.unmatched) {
				t.Fatalf("unmatched = %v, want %v", unmatched, tc.unmatched)
			}
			for i := range unmatched {
				if unmatched[i] != tc.unmatched[i] {
					t.Fatalf("unmatched = %v, want %v", unmatched, tc.unmatched)
				}
			}
		})
	}
}

func TestScanIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir), "top.jpg")
	result, err := pairing.Scan(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Pairs) != 1 || result.Pairs[0].Image.Name != "top.jpg" {
		t.Fatalf("unexpected pairs %+v", result.Pairs)
	}
}

func TestScanSkipsLedgerEntries(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg", "a.mov", "b.jpg")

	l, err := ledger.Open(filepath.Join(t.TempDir(), "processed_files.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Record(filepath.Join(dir, "a.jpg"), filepath.Join(dir, "a.mov")); err != nil {
		t.Fatal(err)
	}

	result, err := pairing.New(l).Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped image, got %d", result.Skipped)
	}
	pairs, unmatched := view(result)
	if len(pairs) != 1 || pairs[0].image != "b.jpg" {
		t.Fatalf("unexpected pairs %+v", pairs)
	}
	// The processed image's base is not recorded, so its video is leftover.
	if len(unmatched) != 1 || unmatched[0] != "a.mov" {
		t.Fatalf("unexpected unmatched %v", unmatched)
	}
}

func TestScanSkipsLedgerEntryAfterVideoRemoved(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg", "a.mov")

	l, err := ledger.Open(filepath.Join(t.TempDir(), "processed_files.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Record(filepath.Join(dir, "a.jpg"), filepath.Join(dir, "a.mov")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "a.mov")); err != nil {
		t.Fatal(err)
	}

	result, err := pairing.New(l).Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped image, got %d", result.Skipped)
	}
	if len(result.Pairs) != 0 || len(result.Unmatched) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestScanIgnoresTempArtifacts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, ".motionmux-a_motion.jpg", ".motionmux-b.mov", "a.jpg", "a.mov")

	result, err := pairing.Scan(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	pairs, unmatched := view(result)
	if len(pairs) != 1 || pairs[0].image != "a.jpg" || pairs[0].video != "a.mov" {
		t.Fatalf("unexpected pairs %+v", pairs)
	}
	if len(unmatched) != 0 {
		t.Fatalf("unexpected unmatched %v", unmatched)
	}
}

func TestScanReturnsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.jpg", "a.mp4")
	t.Chdir(filepath.Dir(dir))

	result, err := pairing.Scan(filepath.Base(dir), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Dir != dir {
		t.Fatalf("dir = %s, want %s", result.Dir, dir)
	}
	if got := result.Pairs[0].VideoPath(); got != filepath.Join(dir, "a.mp4") {
		t.Fatalf("video path = %s", got)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := pairing.Scan(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
