package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"motionmux/internal/config"
	"motionmux/internal/fileutil"
	"motionmux/internal/logging"
)

// commandRunner executes the muxer and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandGateway runs an external muxer binary.
type CommandGateway struct {
	binary  string
	args    []string
	timeout time.Duration
	verbose bool
	logger  *slog.Logger
	run     commandRunner
}

// NewCommandGateway constructs a gateway from the muxer configuration.
func NewCommandGateway(cfg config.Muxer, logger *slog.Logger) *CommandGateway {
	args := cfg.Args
	if len(args) == 0 {
		args = config.DefaultMuxerArgs()
	}
	return &CommandGateway{
		binary:  cfg.Binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		verbose: cfg.Verbose,
		logger:  logging.NewComponentLogger(logger, "transform"),
		run:     defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (g *CommandGateway) WithCommandRunner(r commandRunner) {
	if g != nil && r != nil {
		g.run = r
	}
}

// Transform muxes or copies the request's inputs into the resolved output.
func (g *CommandGateway) Transform(ctx context.Context, req Request) (Result, error) {
	if g == nil {
		return Result{}, errors.New("transform gateway not initialized")
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, g.logger)

	output := req.ResolveOutput()
	if !req.HasVideo() {
		return g.copyImage(logger, req, output)
	}
	return g.mux(ctx, logger, req, output)
}

func (g *CommandGateway) copyImage(logger *slog.Logger, req Request, output string) (Result, error) {
	if output == "" {
		logger.Debug("image has no video and no output location; nothing to do",
			logging.String("image", req.Image),
			logging.String(logging.FieldEventType, "image_skipped"),
		)
		return Result{Status: StatusSkipped}, nil
	}
	if err := fileutil.CopyPreserve(req.Image, output); err != nil {
		return Result{}, fmt.Errorf("copy image %s: %w", req.Image, err)
	}
	logger.Info("image copied without motion video",
		logging.String(logging.FieldEventType, "image_copied"),
		logging.String("image", req.Image),
		logging.String("output", output),
	)
	return Result{Status: StatusCopied, Output: output}, nil
}

func (g *CommandGateway) mux(ctx context.Context, logger *slog.Logger, req Request, output string) (Result, error) {
	if strings.TrimSpace(g.binary) == "" {
		return Result{}, errors.New("muxer binary is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	// The temporary artifact lives beside the output so the final rename
	// stays on one filesystem.
	tmpPath := filepath.Join(filepath.Dir(output), tempPrefix+filepath.Base(output))
	args := expandArgs(g.args, req.Image, req.Video, tmpPath)

	runCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logger.Debug("executing muxer",
		logging.String("binary", g.binary),
		logging.String("image", req.Image),
		logging.String("video", req.Video),
		logging.String("temp_path", tmpPath),
	)

	started := time.Now()
	out, err := g.run(runCtx, g.binary, args...)
	g.logCommandOutput(logger, req, out)
	if err != nil {
		if !req.KeepTemp {
			_ = os.Remove(tmpPath)
		}
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("muxer %s: %w", filepath.Base(g.binary), ctxErr)
		}
		return Result{}, fmt.Errorf("muxer %s failed: %w", filepath.Base(g.binary), err)
	}

	if _, err := os.Stat(tmpPath); err != nil {
		return Result{}, fmt.Errorf("muxer did not produce output file: %w", err)
	}

	result := Result{Status: StatusMuxed, Output: output}
	if req.KeepTemp {
		if err := fileutil.CopyPreserve(tmpPath, output); err != nil {
			return Result{}, fmt.Errorf("place muxed output: %w", err)
		}
		result.TempPath = tmpPath
	} else if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, fmt.Errorf("place muxed output: %w", err)
	}

	if req.DeleteVideo {
		if err := os.Remove(req.Video); err != nil {
			logging.WarnWithContext(logger, "failed to delete source video after muxing", "video_delete_failed",
				logging.String("video", req.Video),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the input directory"),
				logging.String(logging.FieldImpact, "source video remains on disk"),
			)
		} else {
			result.VideoDeleted = true
		}
	}

	logger.Info("motion photo written",
		logging.String(logging.FieldEventType, "pair_muxed"),
		logging.String("image", req.Image),
		logging.String("video", req.Video),
		logging.String("output", output),
		logging.Bool("video_deleted", result.VideoDeleted),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (g *CommandGateway) logCommandOutput(logger *slog.Logger, req Request, out []byte) {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return
	}
	if req.Verbose || g.verbose {
		logger.Info("muxer output", logging.String("output", text))
		return
	}
	logger.Debug("muxer output", logging.String("output", text))
}

// expandArgs substitutes the {image}, {video} and {output} placeholders.
func expandArgs(template []string, image, video, output string) []string {
	replacer := strings.NewReplacer("{image}", image, "{video}", video, "{output}", output)
	args := make([]string, len(template))
	for i, arg := range template {
		args[i] = replacer.Replace(arg)
	}
	return args
}

// defaultCommandRunner executes the muxer, returning stdout and stderr together.
func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Include output in error for debugging
		return output, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return output, nil
}
