// Package logging builds the operational zerolog loggers used by the binaries
// and tests. Battle transcripts live in internal/log.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "CLASH_LOG_LEVEL"
	EnvLogFormat  = "CLASH_LOG_FORMAT"
	EnvLogNoColor = "CLASH_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config describes one logger. Format is "console" or "json".
type Config struct {
	Level     zerolog.Level
	Format    string
	NoColor   bool
	Timestamp bool
}

// DefaultConfig returns the settings for profile before env overrides.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Format: "console", NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Format: "console", Timestamp: true}
	}
}

// ApplyEnv overlays the CLASH_LOG_* variables onto cfg.
func ApplyEnv(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvLogFormat))) {
	case "json":
		cfg.Format = "json"
	case "console", "text":
		cfg.Format = "console"
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// New builds a logger writing to w, tagged with the app name.
func New(w io.Writer, app string, cfg Config) zerolog.Logger {
	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
	}
	ctx := zerolog.New(out).Level(cfg.Level).With().Str("app", app)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

// Runtime returns the binaries' logger: stderr, runtime profile, env overrides.
// Stdout stays free for protocol traffic (the MCP server speaks on it).
func Runtime(app string) zerolog.Logger {
	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg)
	return New(os.Stderr, app, cfg)
}

// ParseLevel maps a level name to a zerolog level. ok is false for empty or
// unknown names.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
