package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"motionmux/internal/daemon"
	"motionmux/internal/dispatch"
	"motionmux/internal/ledger"
	"motionmux/internal/logging"
	"motionmux/internal/monitor"
	"motionmux/internal/testsupport"
	"motionmux/internal/transform"
)

type fakeBatch struct {
	err     error
	calls   int
	running chan struct{}
	release chan struct{}
}

func (b *fakeBatch) Run(context.Context) (dispatch.Report, error) {
	b.calls++
	if b.running != nil {
		close(b.running)
	}
	if b.release != nil {
		<-b.release
	}
	return dispatch.Report{RunID: "run", Directories: 1}, b.err
}

type fakeWatcher struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	ready    chan struct{}
	startErr error
}

func (w *fakeWatcher) Start(context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	if w.ready != nil {
		close(w.ready)
	}
	return nil
}

func (w *fakeWatcher) isStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *fakeWatcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}

func TestRunBatchOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	batch := &fakeBatch{}
	watcher := &fakeWatcher{}
	d, err := daemon.NewWithComponents(cfg, batch, watcher, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	report, err := d.Run(context.Background(), daemon.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID != "run" || batch.calls != 1 {
		t.Fatalf("unexpected report %+v calls=%d", report, batch.calls)
	}
	if watcher.started {
		t.Fatal("watcher should not start without watch")
	}
	if d.Status().Running {
		t.Fatal("daemon should not be running after Run returns")
	}
}

func TestRunBatchOnlyReturnsBatchError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	boom := errors.New("boom")
	d, err := daemon.NewWithComponents(cfg, &fakeBatch{err: boom}, &fakeWatcher{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Run(context.Background(), daemon.Options{}); !errors.Is(err, boom) {
		t.Fatalf("expected batch error, got %v", err)
	}
}

func TestRunWatchUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	watcher := &fakeWatcher{ready: make(chan struct{})}
	d, err := daemon.NewWithComponents(cfg, &fakeBatch{err: errors.New("batch failed")}, watcher, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx, daemon.Options{Watch: true})
		done <- err
	}()

	select {
	case <-watcher.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never started")
	}
	if !d.Status().Running {
		t.Fatal("expected running status while watching")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	watcher.mu.Lock()
	defer watcher.mu.Unlock()
	if !watcher.stopped {
		t.Fatal("watcher not stopped")
	}
}

func TestRunWatchStartsMonitorBeforeBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	batch := &fakeBatch{running: make(chan struct{}), release: make(chan struct{})}
	watcher := &fakeWatcher{}
	d, err := daemon.NewWithComponents(cfg, batch, watcher, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx, daemon.Options{Watch: true})
		done <- err
	}()

	select {
	case <-batch.running:
	case <-time.After(5 * time.Second):
		t.Fatal("batch never started")
	}
	if !watcher.isStarted() {
		t.Fatal("monitor must be watching while the batch runs")
	}
	close(batch.release)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

type passthroughGateway struct{}

func (passthroughGateway) Transform(context.Context, transform.Request) (transform.Result, error) {
	return transform.Result{Status: transform.StatusSkipped}, nil
}

func TestRunWatchPicksUpFilesCreatedDuringBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "processed_files.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	dispatcher, err := dispatch.New(dispatch.Options{Root: root}, l, passthroughGateway{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	mon, err := monitor.New(root, dispatcher, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	batch := &fakeBatch{running: make(chan struct{}), release: make(chan struct{})}
	d, err := daemon.NewWithComponents(cfg, batch, mon, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx, daemon.Options{Watch: true})
		done <- err
	}()

	select {
	case <-batch.running:
	case <-time.After(5 * time.Second):
		t.Fatal("batch never started")
	}
	testsupport.Touch(t, root, "b.jpg")
	image := filepath.Join(root, "b.jpg")
	deadline := time.Now().Add(5 * time.Second)
	for !l.Contains(image) {
		if time.Now().After(deadline) {
			t.Fatal("file created during the batch was never processed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	close(batch.release)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunWatchMonitorStartFailureSkipsBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	batch := &fakeBatch{}
	boom := errors.New("no inotify")
	d, err := daemon.NewWithComponents(cfg, batch, &fakeWatcher{startErr: boom}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Run(context.Background(), daemon.Options{Watch: true}); !errors.Is(err, boom) {
		t.Fatalf("expected monitor start error, got %v", err)
	}
	if batch.calls != 0 {
		t.Fatal("batch must not run when the monitor cannot start")
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	other := flock.New(cfg.Paths.LockPath)
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	defer other.Unlock()

	batch := &fakeBatch{}
	d, err := daemon.NewWithComponents(cfg, batch, &fakeWatcher{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Run(context.Background(), daemon.Options{}); err == nil {
		t.Fatal("expected lock contention error")
	}
	if batch.calls != 0 {
		t.Fatal("batch must not run without the lock")
	}
}
