package logger

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.WithFields(NewField("instrument_id", uint32(7))).Info("applied", NewField("order_id", uint64(42)))
	l.Debug("debug")
	l.Warn("warn")

	require.Equal(t, 3, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "applied", entry.Message)
	assert.Equal(t, map[string]any{"instrument_id": uint32(7), "order_id": uint64(42)}, entry.ContextMap())
}

func TestErrorAttachesStack(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	l := New(zap.New(core))

	l.Error(errors.Wrap(errors.New("disk full"), "append record"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "append record: disk full", entry.Message)
	assert.Contains(t, entry.Stack, "TestErrorAttachesStack")
}

func TestLevelParsing(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, Level("DEBUG").zapLevel())
	assert.Equal(t, zapcore.WarnLevel, WarnLevel.zapLevel())
	assert.Equal(t, zapcore.InfoLevel, Level("bogus").zapLevel())
}

func TestNewLoggerWithFile(t *testing.T) {
	path := t.TempDir() + "/mbo.log"
	l, err := NewLogger(
		WithLoggingLevel(DebugLevel),
		WithOutputPaths([]string{"stdout"}),
		WithFile(path, 1, 1),
	)
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()
	assert.FileExists(t, path)
}
