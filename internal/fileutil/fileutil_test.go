package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCopyPreserveKeepsModeAndTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out", "nested", "clip.mov")

	if err := os.WriteFile(src, []byte("motion"), 0o600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 7, 4, 9, 30, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := CopyPreserve(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %o, want 600", info.Mode().Perm())
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "motion" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestCopyPreserveOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old contents"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyPreserve(src, dst); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestCopyPreserveRejectsSameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyPreserve(src, src); err == nil {
		t.Fatal("expected error copying a file onto itself")
	}
	got, _ := os.ReadFile(src)
	if string(got) != "x" {
		t.Fatal("source was truncated")
	}
}

func TestCopyPreserve_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyPreserve(filepath.Join(dir, "nope"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
