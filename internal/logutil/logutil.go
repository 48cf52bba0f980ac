// Package logutil provides the process-wide structured logger: a thin
// wrapper over zap configured for the two output modes the CLI
// entrypoints need (human-readable console output during local
// development, JSON for production Keeper nodes), plus a per-component
// sugared-logger accessor so call sites never construct their own zap
// config.
package logutil

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the encoder a Logger writes with.
type Format int

const (
	FormatConsole Format = iota
	FormatJSON
)

var (
	mu     sync.Mutex
	root   *zap.Logger
	format = FormatConsole
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init installs the process-wide logger. Safe to call once at process
// startup before any component logger is requested; subsequent calls
// replace the root logger (used by tests that want a silent logger).
func Init(f Format, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	format = f
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	root = zap.New(core, zap.AddCaller())
	return nil
}

// ensureRoot lazily installs a default console logger so packages that
// log before Init runs (unit tests, early CLI flag parsing errors)
// still get a usable sink rather than a nil-pointer panic.
func ensureRoot() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		)
		root = zap.New(core)
	}
	return root
}

// Named returns a sugared logger scoped to component, e.g.
// logutil.Named("mergetree.scan") or logutil.Named("keeper.raftservice").
func Named(component string) *zap.SugaredLogger {
	return ensureRoot().Named(component).Sugar()
}

// SetLevel adjusts the process-wide minimum log level at runtime,
// without a restart.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// Sync flushes any buffered log entries; call from a deferred main().
func Sync() {
	mu.Lock()
	r := root
	mu.Unlock()
	if r != nil {
		_ = r.Sync()
	}
}
