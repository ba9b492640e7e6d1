package testsupport

import (
	"path/filepath"
	"testing"

	"motionmux/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp locations per test.
// The muxer binary defaults to a stub script that concatenates its inputs.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LedgerPath = filepath.Join(base, "state", "processed_files.json")
	cfgVal.Paths.HistoryPath = filepath.Join(base, "state", "history.db")
	cfgVal.Paths.LockPath = filepath.Join(base, "state", "motionmux.lock")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Muxer.Binary = WriteStubMuxer(t, filepath.Join(base, "bin"))

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOutputDir sets output.directory to a fresh directory under the test base.
func WithOutputDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Directory = filepath.Join(b.baseDir, "out")
	}
}

// WithWorkers overrides the dispatch pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.Workers = n
	}
}

// WithFailingMuxer swaps the muxer for a stub that always exits non-zero.
func WithFailingMuxer() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Muxer.Binary = WriteFailingMuxer(b.t, filepath.Join(b.baseDir, "bin-failing"))
	}
}

// WithoutHistory disables the history journal.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.HistoryPath = ""
	}
}
