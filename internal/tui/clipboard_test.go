package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboard_ConfiguredCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip")

	require.NoError(t, newClipboard("tee "+path)("aux-01"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "aux-01", string(data))
}

func TestClipboard_CommandFailure(t *testing.T) {
	err := newClipboard("false")("aux-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "false")
}
