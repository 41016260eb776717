package clilog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "commune.log")
	logger, closer := New(path, "warn", false)

	logger.Info("hidden")
	logger.Warn("visible", "post_id", "p1")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "visible")
	assert.Contains(t, string(data), "post_id=p1")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, parseLevel("error", true))
	assert.Equal(t, log.ErrorLevel, parseLevel("error", false))
	assert.Equal(t, log.InfoLevel, parseLevel("loud", false))
}
