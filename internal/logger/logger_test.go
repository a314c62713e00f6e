package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestInit_FileOutputWritesJSON(t *testing.T) {
	prevLogger, prevLevel := zlog.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "bot.log")
	require.NoError(t, Init(Config{Output: path, Level: "warn"}))

	zlog.Info().Msg("dropped")
	zlog.Warn().Str("guild_id", "1").Msg("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"guild_id":"1"`)
	assert.Contains(t, string(data), `"message":"kept"`)
}

func TestInit_DefaultsToStdout(t *testing.T) {
	prevLogger, prevLevel := zlog.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	require.NoError(t, Init(Config{}))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
