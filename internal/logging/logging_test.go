package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		verbose, debug bool
		expected       zerolog.Level
	}{
		{false, false, zerolog.WarnLevel},
		{true, false, zerolog.InfoLevel},
		{false, true, zerolog.DebugLevel},
		{true, true, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.verbose, tt.debug))
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.log")

	log, closeLog := New(Options{Verbose: true, File: path})
	log.WithName("radio").Info("Mode switched", "to", "STA")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Mode switched"`)
	assert.Contains(t, string(data), `"logger":"radio"`)
	assert.Contains(t, string(data), `"to":"STA"`)
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.log")

	log, closeLog := New(Options{File: path})
	log.Info("hidden")
	log.V(1).Info("also hidden")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	if err == nil {
		assert.NotContains(t, string(data), "hidden")
	}
}
