package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Defaults(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.True(t, l.Core().Enabled(0), "info enabled by default")
	assert.False(t, l.Core().Enabled(-1), "debug disabled by default")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_Console(t *testing.T) {
	l, err := New(Config{Level: "debug", Encoding: "console", Development: true, OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestWithContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), RunIDKey, "run-1")
	ctx = context.WithValue(ctx, PoolKey, "particles")
	ctx = context.WithValue(ctx, WorkerKey, 3)

	fields := Fields(ctx)
	require.Len(t, fields, 3)
	assert.Equal(t, "run_id", fields[0].Key)
	assert.Equal(t, "particles", fields[1].String)
	assert.EqualValues(t, 3, fields[2].Integer)
	assert.Empty(t, Fields(context.Background()))

	l := WithContext(ctx)
	assert.NotNil(t, l)
	assert.NotNil(t, Get())
	assert.NotNil(t, With())
}

func TestInit_ReplacesGlobal(t *testing.T) {
	require.NoError(t, Init(Config{Level: "debug", Encoding: "console", OutputPaths: []string{"stderr"}}))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	require.NoError(t, Init(Config{Level: "error", OutputPaths: []string{"stderr"}}))
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel), "a later Init wins")

	err := Init(Config{Level: "loud"})
	require.Error(t, err)
	assert.True(t, Get().Core().Enabled(zapcore.ErrorLevel), "a failed Init keeps the current logger")
	assert.False(t, Get().Core().Enabled(zapcore.WarnLevel))
	_ = Sync()
}
