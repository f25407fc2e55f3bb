package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger

	// Slog returns the underlying *slog.Logger for components that take
	// one directly (transport, recorder, discovery).
	Slog() *slog.Logger
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// level is shared by every logger New creates, so SetLevel applies to
// all of them.
var level = new(slog.LevelVar)

// New creates a logger. It also sets the shared level to cfg.Level.
func New(cfg Config) (Logger, error) {
	level.Set(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return wrap(slog.New(h)), nil
}

// SetLevel changes the level of every logger created by New.
func SetLevel(s string) {
	level.Set(parseLevel(s))
}

// GetLevel returns the current level name.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// slogLogger binds a *slog.Logger to the context its records are
// emitted with.
type slogLogger struct {
	*slog.Logger
	ctx context.Context
}

func wrap(l *slog.Logger) *slogLogger {
	return &slogLogger{Logger: l, ctx: context.Background()}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.DebugContext(l.ctx, msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.InfoContext(l.ctx, msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.WarnContext(l.ctx, msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.ErrorContext(l.ctx, msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{Logger: l.Logger.With(args...), ctx: l.ctx}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &slogLogger{Logger: l.Logger, ctx: ctx}
}

func (l *slogLogger) Slog() *slog.Logger { return l.Logger }

var defaultLogger atomic.Pointer[slogLogger]

func init() {
	defaultLogger.Store(wrap(slog.Default()))
}

// SetDefault makes l the process-wide logger returned by Default and
// FromContext, and installs its handler as slog's default.
func SetDefault(l Logger) {
	sl, ok := l.(*slogLogger)
	if !ok {
		sl = wrap(l.Slog())
	}
	defaultLogger.Store(sl)
	slog.SetDefault(sl.Logger)
}

// Default returns the process-wide logger.
func Default() Logger {
	return defaultLogger.Load()
}
