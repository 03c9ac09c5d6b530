package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}

func TestNewWritesJSONToFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.log")
	l, err := New(Config{Level: "warn", Format: "json", OutputPaths: []string{p}})
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"shown"`)
	assert.Contains(t, string(b), `"ts":`)
	assert.NotContains(t, string(b), "hidden")
}

func TestNewConsole(t *testing.T) {
	l, err := New(Config{Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewInvalidPath(t *testing.T) {
	_, err := New(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	assert.Error(t, err)
	assert.NotNil(t, Must(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}}))
}
