package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"DEBUG", zerolog.DebugLevel, true},
		{" warning ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogNoColor, "true")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg)
	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.Timestamp)
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv(EnvLogLevel, "shouty")
	t.Setenv(EnvLogNoColor, "maybe")

	cfg := DefaultConfig(ProfileTest)
	ApplyEnv(&cfg)
	assert.Equal(t, DefaultConfig(ProfileTest), cfg)
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "clash-test", Config{Level: zerolog.InfoLevel, Format: "json"})
	l.Debug().Msg("hidden")
	l.Info().Str("battle", "b1").Msg("started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "clash-test", line["app"])
	assert.Equal(t, "b1", line["battle"])
	assert.Equal(t, "started", line["message"])
	assert.NotContains(t, line, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "clash-test", DefaultConfig(ProfileTest))
	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "clash-test")
}
