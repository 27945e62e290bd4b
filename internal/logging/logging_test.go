package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/winsession/internal/config"
)

func TestSetup_SessionFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	logger, closer, err := Setup(Options{
		ConsoleLevel: "warn",
		FileLevel:    "debug",
		Mode:         config.LogModeSession,
		Dir:          dir,
		Console:      &console,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)

	ForWindow(logger, "aux-1").Debug("window created", "category", "settings")
	logger.Warn("save failed")
	require.NoError(t, closer.Close())

	path := filepath.Join(dir, "session_2024-03-09_14-05-07.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "window created")
	assert.Contains(t, string(data), "window=aux-1")
	assert.Contains(t, string(data), "save failed")

	assert.NotContains(t, console.String(), "window created")
	assert.Contains(t, console.String(), "save failed")
}

func TestSetup_Off(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer, err := Setup(Options{
		ConsoleLevel: "info",
		Mode:         config.LogModeOff,
		Dir:          dir,
		Console:      &console,
	})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, console.String(), "hello")
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, _, err := Setup(Options{ConsoleLevel: "chatty", Mode: config.LogModeOff})
	assert.Error(t, err)
}

func TestRollingFile_PicksFirstFileBelowLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(UnifiedFileName(dir, 1), bytes.Repeat([]byte("x"), 100), 0600))
	require.NoError(t, os.WriteFile(UnifiedFileName(dir, 2), []byte("abc"), 0600))

	r, err := newRollingFile(dir, 100)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, 2, r.index)
	assert.Equal(t, int64(3), r.size)
}

func TestRollingFile_RollsOver(t *testing.T) {
	dir := t.TempDir()

	r, err := newRollingFile(dir, 10)
	require.NoError(t, err)

	_, err = r.Write([]byte("12345678\n"))
	require.NoError(t, err)
	_, err = r.Write([]byte("abcdef\n"))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	first, err := os.ReadFile(UnifiedFileName(dir, 1))
	require.NoError(t, err)
	second, err := os.ReadFile(UnifiedFileName(dir, 2))
	require.NoError(t, err)

	assert.Equal(t, "12345678\n", string(first))
	assert.Equal(t, "abcdef\n", string(second))

	_, err = r.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestSetup_Unified(t *testing.T) {
	dir := t.TempDir()

	logger, closer, err := Setup(Options{
		ConsoleLevel: "error",
		FileLevel:    "info",
		Mode:         config.LogModeUnified,
		Dir:          dir,
		MaxFileSize:  1 << 20,
		Console:      &bytes.Buffer{},
	})
	require.NoError(t, err)
	logger.Info("restored windows", "count", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(UnifiedFileName(dir, 1))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "count=3"))
}
