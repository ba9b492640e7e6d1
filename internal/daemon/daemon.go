package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"motionmux/internal/config"
	"motionmux/internal/dispatch"
	"motionmux/internal/logging"
	"motionmux/internal/monitor"
)

// Batch runs a full scan of the root.
type Batch interface {
	Run(ctx context.Context) (dispatch.Report, error)
}

// Watcher is the live monitor lifecycle.
type Watcher interface {
	Start(ctx context.Context) error
	Stop()
}

// Options controls a daemon run.
type Options struct {
	Watch bool
}

// Daemon coordinates the batch pass and the live monitor and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	batch   Batch
	watcher Watcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	now     func() time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
}

// New constructs a daemon around a dispatcher. The live monitor watches the
// dispatcher's root.
func New(cfg *config.Config, dispatcher *dispatch.Dispatcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config and dispatcher")
	}
	mon, err := monitor.New(dispatcher.Root(), dispatcher, logger)
	if err != nil {
		return nil, err
	}
	return NewWithComponents(cfg, dispatcher, mon, logger)
}

// NewWithComponents constructs a daemon from explicit batch and watcher
// implementations.
func NewWithComponents(cfg *config.Config, batch Batch, watcher Watcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || batch == nil || watcher == nil {
		return nil, errors.New("daemon requires config, batch, and watcher")
	}
	lockPath := cfg.Paths.LockPath
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "motionmux.lock")
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		batch:    batch,
		watcher:  watcher,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		now:      time.Now,
	}, nil
}

// Status reports whether a run is in progress.
func (d *Daemon) Status() Status {
	return Status{Running: d.running.Load(), LockFilePath: d.lockPath}
}

// Run acquires the lock and runs the batch. With opts.Watch the monitor is
// started before the batch, so files created while the batch is running are
// picked up live, and it keeps running until ctx is cancelled. Without watch
// the batch error is returned. In watch mode a failed batch is logged and
// monitoring continues, since later file events retry unprocessed images.
func (d *Daemon) Run(ctx context.Context, opts Options) (dispatch.Report, error) {
	if !d.running.CompareAndSwap(false, true) {
		return dispatch.Report{}, errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return dispatch.Report{}, fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return dispatch.Report{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return dispatch.Report{}, fmt.Errorf("another motionmux instance holds %s", d.lockPath)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release lock", logging.Error(err), logging.String("lock", d.lockPath))
		}
	}()

	d.pruneLogs()

	if opts.Watch {
		if err := d.watcher.Start(ctx); err != nil {
			return dispatch.Report{}, fmt.Errorf("start monitor: %w", err)
		}
		defer d.watcher.Stop()
	}

	report, batchErr := d.batch.Run(ctx)
	if !opts.Watch {
		return report, batchErr
	}
	if batchErr != nil {
		logging.WarnWithContext(d.logger, "initial batch failed; continuing to watch", "batch_failed_watching",
			logging.Error(batchErr),
			logging.String(logging.FieldImpact, "failed images stay unprocessed until their directory changes"),
		)
	}
	<-ctx.Done()
	return report, nil
}

func (d *Daemon) pruneLogs() {
	dir := d.cfg.Paths.LogDir
	if dir == "" {
		return
	}
	current := filepath.Join(dir, "motionmux.log")
	removed := logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, d.now(), logging.RetentionTarget{
		Dir:     dir,
		Pattern: "motionmux*.log",
		Exclude: []string{current},
	})
	if removed > 0 {
		d.logger.Info("pruned old log files", logging.Int("removed", removed))
	}
}
