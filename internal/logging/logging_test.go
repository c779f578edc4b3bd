package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSON(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Level:         "debug",
		FilePath:      filepath.Join(dir, "ck.log"),
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)

	logger.Info("index_started", slog.String("root", "/tmp/x"))
	cleanup()

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"index_started"`)
	assert.Contains(t, string(data), `"root":"/tmp/x"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.log")

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	// Force rotation by shrinking the threshold.
	w.maxBytes = 64

	line := strings.Repeat("x", 40) + "\n"
	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file should exist")
}
