// Package logger configures zap for the pysoc CLI and adapts it to the
// domain Logger interface.
package logger

import (
	"context"
	"os"

	"github.com/go-faster/errors"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codekansas/soc/internal/domain/interfaces"
)

// Log formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// defaultLogger is used when no logger is found in context.
var defaultLogger = zap.NewNop() //nolint: gochecknoglobals

// New builds a logger writing to stderr. Verbose lowers the level to debug.
func New(format string, verbose bool) (*zap.Logger, error) {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	var cfg zap.Config
	switch format {
	case FormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if stderrIsTerminal() {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.DisableStacktrace = true
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	default:
		return nil, errors.Errorf("unknown log format %q (supported: console, json)", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	return cfg.Build()
}

// Setup replaces the default logger
func Setup(format string, verbose bool) error {
	l, err := New(format, verbose)
	if err != nil {
		return err
	}
	defaultLogger = l
	return nil
}

// Sync flushes the default logger. Errors from syncing stderr are ignored.
func Sync() {
	_ = defaultLogger.Sync()
}

type key struct{}

// Get retrieves a logger from ctx, falling back to the default logger
func Get(ctx context.Context) *zap.Logger {
	if l, _ := ctx.Value(key{}).(*zap.Logger); l != nil {
		return l
	}
	return defaultLogger
}

// WithLogger returns a context carrying l
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, key{}, l)
}

// WithFields returns a context whose logger adds fields to every entry
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	return WithLogger(ctx, Get(ctx).With(fields...))
}

// Adapter implements interfaces.Logger on top of zap
type Adapter struct {
	l *zap.Logger
}

// NewAdapter wraps l; a nil logger writes nothing
func NewAdapter(l *zap.Logger) *Adapter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Adapter{l: l}
}

// FromContext returns the context logger as a domain logger
func FromContext(ctx context.Context) interfaces.Logger {
	return NewAdapter(Get(ctx))
}

// Debug logs at debug level
func (a *Adapter) Debug(msg string, fields ...interfaces.Field) {
	a.l.Debug(msg, toZap(fields)...)
}

// Info logs at info level
func (a *Adapter) Info(msg string, fields ...interfaces.Field) {
	a.l.Info(msg, toZap(fields)...)
}

// Warn logs at warn level
func (a *Adapter) Warn(msg string, fields ...interfaces.Field) {
	a.l.Warn(msg, toZap(fields)...)
}

// Error logs at error level
func (a *Adapter) Error(msg string, fields ...interfaces.Field) {
	a.l.Error(msg, toZap(fields)...)
}

// With returns an adapter that adds fields to every entry
func (a *Adapter) With(fields ...interfaces.Field) interfaces.Logger {
	return &Adapter{l: a.l.With(toZap(fields)...)}
}

func toZap(fields []interfaces.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}

// stderrIsTerminal reports whether colour codes should be written to stderr
func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}
