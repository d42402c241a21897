package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	closer := Setup(Options{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	log.Info().Str("screen_id", "scr-1").Msg("hello file")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"screen_id":"scr-1"`)
	assert.Contains(t, string(content), "hello file")
}

func TestSetupUnknownLevelFallsBackToInfo(t *testing.T) {
	closer := Setup(Options{Level: "chatty"})
	defer closer.Close()
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
