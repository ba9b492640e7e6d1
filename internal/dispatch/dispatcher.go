package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"motionmux/internal/fileutil"
	"motionmux/internal/history"
	"motionmux/internal/ledger"
	"motionmux/internal/logging"
	"motionmux/internal/media"
	"motionmux/internal/pairing"
	"motionmux/internal/services"
	"motionmux/internal/transform"
)

// Ledger is the subset of the processed-image ledger the dispatcher needs.
type Ledger interface {
	Snapshot() map[string]ledger.Entry
	Contains(imagePath string) bool
	Record(imagePath, videoPath string) (ledger.Entry, error)
}

// Journal receives one row per transform attempt.
type Journal interface {
	Record(ctx context.Context, attempt history.Attempt) (int64, error)
}

// Dispatcher coordinates directory passes.
type Dispatcher struct {
	opts    Options
	ledger  Ledger
	pairer  *pairing.Pairer
	gateway transform.Gateway
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New constructs a dispatcher. The root in opts is made absolute.
func New(opts Options, l Ledger, gw transform.Gateway, logger *slog.Logger) (*Dispatcher, error) {
	if l == nil {
		return nil, errors.New("dispatcher requires a ledger")
	}
	if gw == nil {
		return nil, errors.New("dispatcher requires a transform gateway")
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if strings.TrimSpace(opts.Root) != "" {
		abs, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, fmt.Errorf("resolve root: %w", err)
		}
		opts.Root = abs
	}
	return &Dispatcher{
		opts:     opts,
		ledger:   l,
		pairer:   pairing.New(l),
		gateway:  gw,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}, nil
}

// WithJournal attaches a history journal. A nil journal disables journaling.
func (d *Dispatcher) WithJournal(j Journal) {
	if d != nil {
		d.journal = j
	}
}

// Root returns the absolute scan root.
func (d *Dispatcher) Root() string {
	return d.opts.Root
}

// Run processes the root and every directory beneath it. The directory list is
// fixed before any pass starts. It returns once every pass has finished; the
// error names the first failure and how many other directories failed.
func (d *Dispatcher) Run(ctx context.Context) (Report, error) {
	if d.opts.Root == "" {
		return Report{}, services.Wrap(services.ErrConfiguration, "dispatch", "run", "no input directory", nil)
	}
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	if _, ok := services.TriggerFromContext(ctx); !ok {
		ctx = services.WithTrigger(ctx, services.TriggerBatch)
	}
	logger := logging.WithContext(ctx, d.logger)

	dirs, err := d.listDirectories(logger)
	if err != nil {
		return Report{RunID: runID}, err
	}
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.String("root", d.opts.Root),
		logging.Int("directory_count", len(dirs)),
		logging.Int("workers", d.opts.Workers),
	)

	started := d.now()
	report := Report{RunID: runID}
	var reportMu sync.Mutex

	var g errgroup.Group
	g.SetLimit(d.opts.Workers)
	for _, dir := range dirs {
		g.Go(func() error {
			dirReport, err := d.ProcessDirectory(ctx, dir)
			reportMu.Lock()
			report.add(dirReport)
			reportMu.Unlock()
			return err
		})
	}
	firstErr := g.Wait()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("directories", report.Directories),
		logging.Int("muxed", report.Muxed),
		logging.Int("copied", report.Copied),
		logging.Int("already_done", report.AlreadyDone),
		logging.Int("unmatched_copied", report.Unmatched),
		logging.Int("failed_directories", report.FailedDirectories),
		logging.Duration("elapsed", d.now().Sub(started)),
	}
	if firstErr != nil {
		logging.ErrorWithContext(logger, "batch finished with failures", "batch_failed",
			append(attrs, logging.Error(firstErr),
				logging.String(logging.FieldErrorHint, "fix the failing inputs and rerun; processed images are skipped"))...)
		if extra := report.FailedDirectories - 1; extra > 0 {
			return report, fmt.Errorf("%w (and %d more failed directories)", firstErr, extra)
		}
		return report, firstErr
	}
	logger.Info("batch complete", logging.Args(attrs...)...)
	return report, nil
}

// ProcessDirectory pairs the files directly inside dir and transforms every
// pair not yet in the ledger. Pairs are handled in listing order and the pass
// stops at the first failure.
func (d *Dispatcher) ProcessDirectory(ctx context.Context, dir string) (DirectoryReport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return DirectoryReport{Dir: dir, Failed: 1}, services.Wrap(services.ErrFilesystem, "dispatch", "resolve directory", dir, err)
	}
	ctx = services.WithDirectory(ctx, abs)
	if _, ok := services.RunIDFromContext(ctx); !ok {
		ctx = services.WithRunID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, d.logger)
	report := DirectoryReport{Dir: abs}

	result, err := d.pairer.Scan(abs)
	if err != nil {
		report.Failed++
		return report, services.Wrap(services.ErrFilesystem, "dispatch", "scan", abs, err)
	}
	report.AlreadyDone = result.Skipped

	if err := d.copyUnmatched(logger, result.Unmatched, &report); err != nil {
		report.Failed++
		return report, err
	}

	outputDir := d.outputDirFor(abs)
	for _, pair := range result.Pairs {
		_, status, err := d.handlePair(ctx, logger, d.opts.request(pair.Image.Path, pair.VideoPath(), outputDir))
		switch status {
		case transform.StatusMuxed:
			report.Muxed++
		case transform.StatusCopied:
			report.Copied++
		case transform.StatusSkipped:
			report.Skipped++
		case statusInFlight:
			report.InFlight++
		case statusAlreadyDone:
			report.AlreadyDone++
		}
		if err != nil {
			report.Failed++
			return report, err
		}
	}

	if len(result.Pairs) > 0 || report.Unmatched > 0 {
		logger.Debug("directory pass complete",
			logging.String(logging.FieldEventType, "directory_complete"),
			logging.Int("pairs", len(result.Pairs)),
			logging.Int("muxed", report.Muxed),
			logging.Int("copied", report.Copied),
			logging.Int("already_done", report.AlreadyDone),
		)
	}
	return report, nil
}

// ProcessPair transforms one explicit request, honouring the ledger the same
// way a directory pass does. Requests for images already in the ledger are
// reported as already done without invoking the gateway.
func (d *Dispatcher) ProcessPair(ctx context.Context, req transform.Request) (transform.Result, bool, error) {
	image, err := filepath.Abs(req.Image)
	if err != nil {
		return transform.Result{}, false, services.Wrap(services.ErrFilesystem, "dispatch", "resolve image", req.Image, err)
	}
	req.Image = image
	if req.Video != "" {
		if req.Video, err = filepath.Abs(req.Video); err != nil {
			return transform.Result{}, false, services.Wrap(services.ErrFilesystem, "dispatch", "resolve video", req.Video, err)
		}
	}
	if _, ok := services.RunIDFromContext(ctx); !ok {
		ctx = services.WithRunID(ctx, uuid.NewString())
	}
	ctx = services.WithDirectory(ctx, filepath.Dir(image))
	if _, ok := services.TriggerFromContext(ctx); !ok {
		ctx = services.WithTrigger(ctx, services.TriggerSingle)
	}
	logger := logging.WithContext(ctx, d.logger)

	result, status, err := d.handlePair(ctx, logger, req)
	if status == statusAlreadyDone || status == statusInFlight {
		return transform.Result{}, false, nil
	}
	return result, err == nil, err
}

const (
	statusInFlight    transform.Status = "in_flight"
	statusAlreadyDone transform.Status = "already_done"
)

// handlePair claims the image, re-checks the ledger, runs the gateway and
// records the image once the gateway succeeds.
func (d *Dispatcher) handlePair(ctx context.Context, logger *slog.Logger, req transform.Request) (transform.Result, transform.Status, error) {
	image, video := req.Image, req.Video
	if !d.claim(image) {
		logger.Debug("image already being processed by another pass", logging.String("image", image))
		return transform.Result{}, statusInFlight, nil
	}
	defer d.release(image)

	// The snapshot the pass started from may be stale when a live event and a
	// batch pass overlap.
	if d.ledger.Contains(image) {
		logger.Debug("image already recorded in ledger", logging.String("image", image))
		return transform.Result{}, statusAlreadyDone, nil
	}

	started := d.now()
	result, err := d.gateway.Transform(ctx, req)
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "dispatch", "transform", image, err)
		d.journalAttempt(ctx, logger, req, result, started, wrapped)
		logging.ErrorWithContext(logger, "transform failed; image not recorded", "transform_failed",
			logging.String("image", image),
			logging.String("video", video),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the muxer output and the input files"),
		)
		return transform.Result{}, "", wrapped
	}

	if _, err := d.ledger.Record(image, video); err != nil {
		wrapped := services.Wrap(services.ErrLedger, "dispatch", "record", image, err)
		d.journalAttempt(ctx, logger, req, result, started, wrapped)
		return result, result.Status, wrapped
	}
	d.journalAttempt(ctx, logger, req, result, started, nil)
	return result, result.Status, nil
}

func (d *Dispatcher) copyUnmatched(logger *slog.Logger, videos []media.File, report *DirectoryReport) error {
	if d.opts.OutputDir == "" {
		return nil
	}
	for _, video := range videos {
		dst := filepath.Join(d.opts.OutputDir, video.Name)
		if err := fileutil.CopyPreserve(video.Path, dst); err != nil {
			return services.Wrap(services.ErrFilesystem, "dispatch", "copy unmatched video", video.Path, err)
		}
		report.Unmatched++
		logger.Info("unmatched video copied",
			logging.String(logging.FieldEventType, "unmatched_video_copied"),
			logging.String("video", video.Path),
			logging.String("output", dst),
		)
	}
	return nil
}

// outputDirFor mirrors dir's position under the scan root into the output
// root. Directories outside the root map to the output root itself.
func (d *Dispatcher) outputDirFor(dir string) string {
	if d.opts.OutputDir == "" {
		return ""
	}
	if d.opts.Root == "" {
		return d.opts.OutputDir
	}
	rel, err := filepath.Rel(d.opts.Root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return d.opts.OutputDir
	}
	return filepath.Join(d.opts.OutputDir, rel)
}

func (d *Dispatcher) listDirectories(logger *slog.Logger) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(d.opts.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == d.opts.Root {
				return err
			}
			logging.WarnWithContext(logger, "skipping unreadable directory", "directory_unreadable",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "files in this directory are not processed"),
			)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "dispatch", "list directories", d.opts.Root, err)
	}
	return dirs, nil
}

func (d *Dispatcher) claim(image string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[image]; busy {
		return false
	}
	d.inflight[image] = struct{}{}
	return true
}

func (d *Dispatcher) release(image string) {
	d.mu.Lock()
	delete(d.inflight, image)
	d.mu.Unlock()
}

func (d *Dispatcher) journalAttempt(ctx context.Context, logger *slog.Logger, req transform.Request, result transform.Result, started time.Time, failure error) {
	if d.journal == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	trigger, _ := services.TriggerFromContext(ctx)
	dir, _ := services.DirectoryFromContext(ctx)
	attempt := history.Attempt{
		RunID:      runID,
		Trigger:    trigger,
		Directory:  dir,
		Image:      req.Image,
		Video:      req.Video,
		Output:     result.Output,
		Status:     history.StatusSucceeded,
		StartedAt:  started,
		FinishedAt: d.now(),
	}
	switch {
	case failure != nil:
		attempt.Status = history.StatusFailed
		attempt.Error = failure.Error()
	case result.Status == transform.StatusSkipped:
		attempt.Status = history.StatusSkipped
	}
	if _, err := d.journal.Record(ctx, attempt); err != nil {
		logging.WarnWithContext(logger, "failed to write history journal row", "history_write_failed",
			logging.String("image", req.Image),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_path"),
			logging.String(logging.FieldImpact, "attempt missing from history; ledger unaffected"),
		)
	}
}
