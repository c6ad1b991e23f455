// Package logger wraps zap behind a process-wide logger initialized once in main.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Config controls the global logger setup.
	Config struct {
		LogFile   string // path for the file sink, empty disables it
		LogLevel  string // debug|info|warn|error
		AppName   string
		AddCaller bool
	}

	// Logger is a thin wrapper around zap.Logger so packages depend on
	// this package instead of zap directly.
	Logger struct {
		*zap.Logger
	}
)

var (
	global *Logger
	mu     sync.RWMutex
)

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init builds the global logger. Must be called before Get.
func Init(cfg Config) error {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := parseLevel(cfg.LogLevel)

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.Lock(file),
			level,
		))
	}

	opts := []zap.Option{
		zap.Fields(zap.String("app", cfg.AppName)),
	}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	mu.Lock()
	global = &Logger{zap.New(zapcore.NewTee(cores...), opts...)}
	mu.Unlock()

	return nil
}

// Get returns the global logger, falling back to a no-op logger when
// Init was never called (keeps tests quiet).
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return &Logger{zap.NewNop()}
	}

	return global
}

// Sync flushes buffered log entries. Deferred in main.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()

	if global != nil {
		_ = global.Logger.Sync()
	}
}
