// Package logger builds the zap loggers handed to sessions and commands.
//
// There is no process-wide logger: main builds one from configuration and
// passes it down explicitly.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFileName is the log file created when Output names a directory.
const DefaultFileName = "cephtool.log"

// Config selects level, encoding and destination.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string

	// Format is "text" (console encoder) or "json"
	Format string

	// Output is "stdout", "stderr", a file path, or an existing directory
	Output string
}

// New builds a logger from cfg.
//
// An Output that cannot be opened does not fail: logging falls back to
// stdout and the first record explains why. The returned close function
// flushes and releases the destination.
func New(cfg Config) (*zap.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	sink, closeSink, openErr := openOutput(cfg.Output)
	if openErr != nil {
		sink, closeSink = zapcore.AddSync(os.Stdout), func() {}
	}

	core := zapcore.NewCore(encoder, sink, level)
	log := zap.New(core, zap.AddCaller())
	if openErr != nil {
		log.Warn("log output unavailable, using stdout",
			zap.String("output", cfg.Output), zap.Error(openErr))
	}

	return log, func() {
		_ = log.Sync()
		closeSink()
	}, nil
}

// ParseLevel converts a configuration level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func openOutput(output string) (zapcore.WriteSyncer, func(), error) {
	switch output {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), func() {}, nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), func() {}, nil
	}

	path := output
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		path = filepath.Join(output, DefaultFileName)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return zapcore.AddSync(f), func() { _ = f.Close() }, nil
}
