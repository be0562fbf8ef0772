package logger

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"codejudge/pkg/utils/contextkey"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var global atomic.Pointer[Logger]

// Logger is a zap logger that tags entries with the request ids found in a context.
type Logger struct {
	zap *zap.Logger
}

// Config selects level, encoding and sinks. Paths other than stdout and stderr are files
// rotated by lumberjack.
type Config struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or console
	OutputPath string `yaml:"outputPath"`
	ErrorPath  string `yaml:"errorPath"`

	MaxSizeMB  int `yaml:"maxSizeMB"`
	MaxBackups int `yaml:"maxBackups"`
	MaxAgeDays int `yaml:"maxAgeDays"`
}

// Init installs the package-level logger used by Debug, Info, Warn and Error.
func Init(cfg Config) error {
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	global.Store(l)
	return nil
}

// NewLogger builds a logger writing every enabled entry to OutputPath and copying
// error entries to ErrorPath.
func NewLogger(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	enc := newEncoder(cfg.Format)
	errorsOnly := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.ErrorLevel && level.Enabled(l)
	})
	core := zapcore.NewTee(
		zapcore.NewCore(enc, sink(cfg.OutputPath, "stdout", cfg), level),
		zapcore.NewCore(enc.Clone(), sink(cfg.ErrorPath, "stderr", cfg), errorsOnly),
	)
	// skip logAt and the exported level function
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{zap: z}, nil
}

func newEncoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.FunctionKey = "func"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeDuration = zapcore.SecondsDurationEncoder
	if format == "json" {
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func sink(path, fallback string, cfg Config) zapcore.WriteSyncer {
	if path == "" {
		path = fallback
	}
	switch path {
	case "stdout":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    positive(cfg.MaxSizeMB, 100),
		MaxBackups: positive(cfg.MaxBackups, 5),
		MaxAge:     positive(cfg.MaxAgeDays, 14),
		Compress:   true,
	})
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// WithContext returns the underlying zap logger tagged with the ids carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	return l.zap.With(contextFields(ctx)...)
}

func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	for _, k := range []interface{ String() string }{contextkey.TraceID, contextkey.RequestID} {
		if v := ctx.Value(k); v != nil {
			fields = append(fields, zap.String(k.String(), fmt.Sprint(v)))
		}
	}
	if v := ctx.Value(contextkey.AccountID); v != nil {
		fields = append(fields, zap.Any(contextkey.AccountID.String(), v))
	}
	return fields
}

// logAt skips the context lookup when lvl is disabled.
func logAt(ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) {
	l := global.Load()
	if l == nil {
		return
	}
	ce := l.zap.Check(lvl, msg)
	if ce == nil {
		return
	}
	ce.Write(append(contextFields(ctx), fields...)...)
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.DebugLevel, msg, fields)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.InfoLevel, msg, fields)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.WarnLevel, msg, fields)
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	logAt(ctx, zapcore.ErrorLevel, msg, fields)
}

// Since is the "elapsed" field measured from start.
func Since(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}

// Sync flushes the package-level logger.
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
