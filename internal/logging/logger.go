package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"motionmux/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string // debug, info, warn or error; anything else means info
	Format string // console (default) or json
	// Writer is the primary destination. Nil means stdout.
	Writer io.Writer
	// Files are appended to in addition to Writer.
	Files []string
	// Development adds the caller to every record, not only at debug level.
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)

	out := opts.Writer
	if out == nil {
		out = os.Stdout
	}
	color := isTerminal(out)
	if len(opts.Files) > 0 {
		writers := []io.Writer{out}
		for _, path := range opts.Files {
			file, err := openLogFile(path)
			if err != nil {
				return nil, err
			}
			writers = append(writers, file)
		}
		out = io.MultiWriter(writers...)
		// Escape codes would end up in the files.
		color = false
	}

	withSource := opts.Development || level <= slog.LevelDebug

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return slog.New(&consoleHandler{
			out:    &lockedWriter{w: out},
			level:  level,
			source: withSource,
			color:  color,
		}), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       level,
			AddSource:   withSource,
			ReplaceAttr: jsonKeys,
		})), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates a logger from the [logging] section. Output goes to
// stdout and, when a log directory is configured, to motionmux.log inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if cfg.Paths.LogDir != "" {
		opts.Files = []string{filepath.Join(cfg.Paths.LogDir, "motionmux.log")}
	}
	return New(opts)
}

func parseLevel(value string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func openLogFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// jsonKeys shortens the built-in keys and renders time in UTC.
func jsonKeys(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		attr.Key = "ts"
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
			attr.Value = slog.StringValue(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
		}
	}
	return attr
}

// lockedWriter is shared by a handler and everything derived from it so
// lines from concurrent workers never interleave.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(p []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(p)
	return err
}

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05Z INFO dispatch: pair muxed image=/a.jpg
//
// The component attribute becomes the line prefix and event_type is left to
// the JSON format.
type consoleHandler struct {
	out       *lockedWriter
	level     slog.Leveler
	source    bool
	color     bool
	component string
	fields    string // pre-rendered attrs from WithAttrs
	group     string // dotted key prefix from WithGroup
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	component := h.component
	var fields strings.Builder
	fields.WriteString(h.fields)
	record.Attrs(func(attr slog.Attr) bool {
		if c := appendField(&fields, h.group, attr); c != "" && component == "" {
			component = c
		}
		return true
	})

	var line strings.Builder
	line.WriteString(ts.UTC().Format(time.RFC3339))
	line.WriteByte(' ')
	line.WriteString(h.levelLabel(record.Level))
	line.WriteByte(' ')
	if component != "" {
		line.WriteString(component)
		line.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)
	if h.source {
		if caller := callerOf(record.PC); caller != "" {
			line.WriteString(" [")
			line.WriteString(caller)
			line.WriteByte(']')
		}
	}
	line.WriteString(fields.String())
	line.WriteByte('\n')
	return h.out.write([]byte(line.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	var fields strings.Builder
	fields.WriteString(h.fields)
	for _, attr := range attrs {
		if c := appendField(&fields, h.group, attr); c != "" && next.component == "" {
			next.component = c
		}
	}
	next.fields = fields.String()
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

func callerOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

// appendField writes " key=value" for attr, flattening groups. A top-level
// component attribute is returned instead of written.
func appendField(b *strings.Builder, prefix string, attr slog.Attr) string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return ""
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			appendField(b, inner, member)
		}
		return ""
	}
	if prefix == "" {
		switch attr.Key {
		case FieldComponent:
			return attr.Value.String()
		case FieldEventType:
			return ""
		}
	}
	b.WriteByte(' ')
	b.WriteString(prefix + attr.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(attr.Value))
	return ""
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	return strings.ContainsFunc(s, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	})
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiGray   = "\x1b[90m"
	ansiReset  = "\x1b[0m"
)

func (h *consoleHandler) levelLabel(level slog.Level) string {
	var label, color string
	switch {
	case level >= slog.LevelError:
		label, color = "ERROR", ansiRed
	case level >= slog.LevelWarn:
		label, color = "WARN", ansiYellow
	case level >= slog.LevelInfo:
		label = "INFO"
	default:
		label, color = "DEBUG", ansiGray
	}
	if !h.color || color == "" {
		return label
	}
	return color + label + ansiReset
}
