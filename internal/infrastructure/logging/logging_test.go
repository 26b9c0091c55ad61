package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevelDefaults(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, level)
}

func TestParseLevelKnownValues(t *testing.T) {
	level, err := parseLevel(LevelDebug)
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, level)
}

func TestParseLevelRejectsGarbage(t *testing.T) {
	_, err := parseLevel("not-a-level")
	require.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(LevelDebug, true)
	require.NoError(t, err)
	require.NotNil(t, logger)
}
