package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"Warn":  zapcore.WarnLevel,
		"ERROR": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewWritesToDirectory(t *testing.T) {
	dir := t.TempDir()

	log, closeLog, err := New(Config{Level: "INFO", Format: "json", Output: dir})
	require.NoError(t, err)
	log.Info("hello", zap.String("path", "/a"))
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"path":"/a"`)
}

func TestNewLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, closeLog, err := New(Config{Level: "ERROR", Format: "text", Output: path})
	require.NoError(t, err)
	log.Info("dropped")
	log.Error("kept")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNewFallsBackToStdout(t *testing.T) {
	log, closeLog, err := New(Config{Output: "/nonexistent/dir/cephtool.log"})
	require.NoError(t, err)
	require.NotNil(t, log)
	closeLog()
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, _, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}
