// Package log provides category-tagged structured logging backed by zap.
//
// Every call names a Category so log output can be filtered by subsystem:
//
//	log.Debug(log.CatCDP, "Connected to page", "page", id, "port", port)
//	log.ErrorErr(log.CatDB, "Failed to save stats", err)
//
// Until Init is called the package logs nothing, which keeps tests quiet.
package log

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	CatCDP     Category = "cdp"
	CatPoll    Category = "poll"
	CatConfig  Category = "config"
	CatDB      Category = "db"
	CatLicense Category = "license"
	CatLaunch  Category = "launch"
	CatEditor  Category = "editor"
	CatUI      Category = "ui"
	CatSafety  Category = "safety"
)

// Config controls the zap backend.
type Config struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
	Output string `mapstructure:"output"` // stdout, stderr, or a file path
}

var (
	mu     sync.RWMutex
	logger = zap.NewNop().Sugar()
	closer func() error
)

// Init replaces the package logger. Calling Init again closes the previous output file.
func Init(cfg Config) error {
	l, c, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := closer
	logger = l
	closer = c
	mu.Unlock()

	if prev != nil {
		_ = prev()
	}
	return nil
}

// Close flushes buffered entries and releases the output file, if any.
func Close() {
	mu.Lock()
	l := logger
	c := closer
	logger = zap.NewNop().Sugar()
	closer = nil
	mu.Unlock()

	_ = l.Sync()
	if c != nil {
		_ = c()
	}
}

func build(cfg Config) (*zap.SugaredLogger, func() error, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "console", "text":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var (
		sink  zapcore.WriteSyncer
		close func() error
	)
	switch cfg.Output {
	case "", "stderr":
		sink = zapcore.AddSync(os.Stderr)
	case "stdout":
		sink = zapcore.AddSync(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		sink = zapcore.AddSync(f)
		close = f.Close
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(), close, nil
}

// SetLogger installs an already-built logger. Used by tests that capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	logger = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	mu.Unlock()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func withCategory(cat Category, kv []any) []any {
	out := make([]any, 0, len(kv)+2)
	out = append(out, "cat", string(cat))
	return append(out, kv...)
}

// Debug logs at debug level.
func Debug(cat Category, msg string, kv ...any) {
	current().Debugw(msg, withCategory(cat, kv)...)
}

// Info logs at info level.
func Info(cat Category, msg string, kv ...any) {
	current().Infow(msg, withCategory(cat, kv)...)
}

// Warn logs at warn level.
func Warn(cat Category, msg string, kv ...any) {
	current().Warnw(msg, withCategory(cat, kv)...)
}

// Error logs at error level.
func Error(cat Category, msg string, kv ...any) {
	current().Errorw(msg, withCategory(cat, kv)...)
}

// ErrorErr logs err at error level under the "error" key.
func ErrorErr(cat Category, msg string, err error, kv ...any) {
	kv = append([]any{"error", err}, kv...)
	current().Errorw(msg, withCategory(cat, kv)...)
}

// SafeGo runs fn on a new goroutine and logs instead of crashing if it panics.
func SafeGo(name string, fn func()) {
	go func() {
		defer Recover(name)
		fn()
	}()
}

// Recover logs a recovered panic. It must be called directly via defer.
func Recover(name string) {
	if r := recover(); r != nil {
		current().Errorw("goroutine panicked",
			"cat", "panic",
			"goroutine", name,
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()),
		)
	}
}
