package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const stubMuxerScript = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --image) image="$2"; shift 2 ;;
    --video) video="$2"; shift 2 ;;
    --output) output="$2"; shift 2 ;;
    *) shift ;;
  esac
done
echo "$image" >> "$0.calls"
cat "$image" "$video" > "$output"
`

const failingMuxerScript = `#!/bin/sh
echo "muxer exploded" >&2
exit 3
`

// WriteStubMuxer installs a muxer script in dir that writes the image bytes
// followed by the video bytes to the output path. Each invocation appends the
// image path to "<script>.calls".
func WriteStubMuxer(t testing.TB, dir string) string {
	t.Helper()
	return writeScript(t, filepath.Join(dir, "stub-muxer"), stubMuxerScript)
}

// WriteFailingMuxer installs a muxer script in dir that always fails.
func WriteFailingMuxer(t testing.TB, dir string) string {
	t.Helper()
	return writeScript(t, filepath.Join(dir, "failing-muxer"), failingMuxerScript)
}

// MuxerCalls returns the image paths the stub muxer at script was invoked with.
func MuxerCalls(t testing.TB, script string) []string {
	t.Helper()
	data, err := os.ReadFile(script + ".calls")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read muxer calls: %v", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func writeScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}
