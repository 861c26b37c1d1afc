package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.SugaredLogger

// Init initializes the global logger.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		globalLogger = zap.NewNop().Sugar()
		return nil
	}

	var paths []string
	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		paths = append(paths, logFile)
	}
	if console || len(paths) == 0 {
		paths = append(paths, "stdout")
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(levelStr))
	cfg.Encoding = "console"
	cfg.OutputPaths = paths
	cfg.ErrorOutputPaths = paths
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	l, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	globalLogger = l.Sugar()
	return nil
}

func parseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	if globalLogger == nil {
		return
	}
	globalLogger.Debugf(format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	if globalLogger == nil {
		return
	}
	globalLogger.Infof(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	if globalLogger == nil {
		return
	}
	globalLogger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	if globalLogger == nil {
		return
	}
	globalLogger.Errorf(format, args...)
}

// Sync flushes buffered log entries.
func Sync() {
	if globalLogger == nil {
		return
	}
	_ = globalLogger.Sync()
}
