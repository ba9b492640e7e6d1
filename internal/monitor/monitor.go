package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"motionmux/internal/dispatch"
	"motionmux/internal/logging"
	"motionmux/internal/services"
	"motionmux/internal/transform"
)

// State is the monitor lifecycle state.
type State int

const (
	StateIdle State = iota
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateWatching:
		return "watching"
	default:
		return "idle"
	}
}

// Handler runs a single-directory pass.
type Handler interface {
	ProcessDirectory(ctx context.Context, dir string) (dispatch.DirectoryReport, error)
}

// Monitor watches a tree for newly created files.
type Monitor struct {
	root    string
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	watcher *fsnotify.Watcher
	passes  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an idle monitor for root.
func New(root string, handler Handler, logger *slog.Logger) (*Monitor, error) {
	if handler == nil {
		return nil, errors.New("monitor requires a directory handler")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	return &Monitor{
		root:    abs,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "monitor"),
	}, nil
}

// Root returns the watched root.
func (m *Monitor) Root() string {
	return m.root
}

// State reports whether the monitor is watching.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return StateWatching
	}
	return StateIdle
}

// Passes returns how many directory passes events have triggered.
func (m *Monitor) Passes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.passes
}

// Start registers watches on every directory under the root and begins
// consuming events.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("monitor already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	m.watcher = watcher
	dirs, err := m.addWatches(watcher, m.root)
	if err != nil {
		_ = watcher.Close()
		m.watcher = nil
		return fmt.Errorf("watch %s: %w", m.root, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop(runCtx, watcher)

	m.logger.Info("watching for new files",
		logging.String(logging.FieldEventType, "monitor_started"),
		logging.String("root", m.root),
		logging.Int("directory_count", len(dirs)),
	)
	return nil
}

// Stop ends event delivery. A pass already running is allowed to finish before
// Stop returns; no event is dispatched afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	watcher := m.watcher
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			m.logger.Debug("close watcher", logging.Error(err))
		}
	}
	m.logger.Info("monitor stopped", logging.String(logging.FieldEventType, "monitor_stopped"))
}

func (m *Monitor) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			m.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(m.logger, "file watcher error", "watcher_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches if the tree is large"),
				logging.String(logging.FieldImpact, "some file events may have been missed"),
			)
		}
	}
}

func (m *Monitor) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) {
		return
	}
	if transform.IsTempArtifact(event.Name) {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		dirs, err := m.addWatches(watcher, event.Name)
		if err != nil {
			logging.WarnWithContext(m.logger, "failed to watch new directory", "watch_add_failed",
				logging.String("path", event.Name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "files created in this directory are not picked up live"),
			)
			return
		}
		m.logger.Debug("watching new directory",
			logging.String("path", event.Name),
			logging.Int("directory_count", len(dirs)),
		)
		// Content written before the watch landed, or moved in with the
		// directory, produces no events of its own.
		for _, dir := range dirs {
			if ctx.Err() != nil {
				return
			}
			m.runPass(ctx, dir, event.Name)
		}
		return
	}

	m.runPass(ctx, filepath.Dir(event.Name), event.Name)
}

func (m *Monitor) runPass(ctx context.Context, dir, triggerPath string) {
	// The pass runs to completion even if Stop cancels the monitor meanwhile.
	passCtx := context.WithoutCancel(ctx)
	passCtx = services.WithRunID(passCtx, uuid.NewString())
	passCtx = services.WithTrigger(passCtx, services.TriggerLive)

	logger := logging.WithContext(services.WithDirectory(passCtx, dir), m.logger)
	logger.Debug("file created; processing directory", logging.String("path", triggerPath))

	report, err := m.handler.ProcessDirectory(passCtx, dir)
	m.mu.Lock()
	m.passes++
	m.mu.Unlock()
	if err != nil {
		logging.ErrorWithContext(logger, "live directory pass failed", "live_pass_failed",
			logging.String("trigger_path", triggerPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next file event in this directory retries unprocessed images"),
		)
		return
	}
	if report.Muxed+report.Copied+report.Unmatched > 0 {
		logger.Info("live directory pass complete",
			logging.String(logging.FieldEventType, "live_pass_complete"),
			logging.Int("muxed", report.Muxed),
			logging.Int("copied", report.Copied),
			logging.Int("unmatched_copied", report.Unmatched),
		)
	}
}

// addWatches adds root and all of its subdirectories to watcher and returns
// the directories now watched.
func (m *Monitor) addWatches(watcher *fsnotify.Watcher, root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			m.logger.Debug("skipping unreadable directory", logging.String("path", path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			if path == root {
				return err
			}
			m.logger.Debug("failed to add watch for subdirectory", logging.String("path", path), logging.Error(err))
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}
