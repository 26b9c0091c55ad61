// Package logging builds the structured logger used by the server
// process. Grounded on the teacher's setupLogging (cmd/reglet/root.go)
// for the verbose/level-selection shape, generalized from slog's
// TextHandler to zap's structured leveled logging — a long-running
// server process benefits from JSON-capable leveled logging more than
// a short-lived CLI invocation does.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by New, matching the WASSETTE_LOG_LEVEL values.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// New builds a zap.Logger writing to stderr. json selects JSON-encoded
// output (for ingestion by a log pipeline) over zap's human-readable
// console encoding (for interactive use).
func New(level string, json bool) (*zap.Logger, error) {
	zapLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if json {
		cfg.Encoding = "json"
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return cfg.Build()
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", LevelInfo:
		return zapcore.InfoLevel, nil
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelWarn:
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	default:
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(level)); err != nil {
			return zapcore.InfoLevel, err
		}
		return l, nil
	}
}
