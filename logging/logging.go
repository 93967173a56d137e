// Package logging builds the zap loggers used across the library and CLI.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by NewLogger.
const (
	LevelSilent  = "silent"
	LevelError   = "error"
	LevelInfo    = "info"
	LevelVerbose = "verbose"
	LevelDebug   = "debug"
)

// NewLogger builds a console logger at the named level, optionally teeing
// into a log file. LevelSilent returns a nop logger.
func NewLogger(level string, logFile string) (*zap.Logger, error) {
	var zl zapcore.Level
	switch level {
	case LevelSilent:
		return zap.NewNop(), nil
	case LevelError:
		zl = zapcore.ErrorLevel
	case "", LevelInfo:
		zl = zapcore.InfoLevel
	case LevelVerbose, LevelDebug:
		zl = zapcore.DebugLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
