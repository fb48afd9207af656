// ABOUTME: Structured logger construction.
// ABOUTME: Console output for development, JSON otherwise; a rotated file sink when a log file is set.

package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls NewLogger.
type Options struct {
	Level string
	// File, when set, receives JSON logs rotated by size.
	File string
	// Dev selects a human-readable console encoder on stderr.
	Dev bool
	// Stderr overrides os.Stderr; used by tests.
	Stderr io.Writer
}

// NewLogger builds the process logger. The returned close function flushes
// and closes the file sink.
func NewLogger(opts Options) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var cores []zapcore.Core
	if opts.Dev {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(stderr), level))
	} else {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(stderr), level))
	}

	var sink *lumberjack.Logger
	if opts.File != "" {
		sink = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(sink), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	closeFn := func() error {
		logger.Sync()
		if sink != nil {
			return sink.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}
