// Package config loads the engine, timing and transport settings shared by
// the binaries. Files are TOML or YAML, picked by extension.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine   EngineConfig
	Timings  map[string]time.Duration // per presentation event; unset events use the built-in table
	Server   ServerConfig
	Loadouts string // YAML loadout file; empty uses the built-in starter
	Loadout  string // loadout name within Loadouts; empty picks the first
	Seed     int64  // 0 seeds from the clock
	Log      LogConfig
}

type EngineConfig struct {
	MaxDepth int
	MaxSteps int
}

type ServerConfig struct {
	TCPAddr string
	WebAddr string
}

type LogConfig struct {
	Level  string
	Format string
}

// fileConfig mirrors the on-disk layout. Durations are strings ("450ms").
type fileConfig struct {
	Engine struct {
		MaxDepth int `toml:"max_depth" yaml:"max_depth"`
		MaxSteps int `toml:"max_steps" yaml:"max_steps"`
	} `toml:"engine" yaml:"engine"`
	Timings map[string]string `toml:"timings" yaml:"timings"`
	Server  struct {
		TCPAddr string `toml:"tcp_addr" yaml:"tcp_addr"`
		WebAddr string `toml:"web_addr" yaml:"web_addr"`
	} `toml:"server" yaml:"server"`
	Loadouts string `toml:"loadouts" yaml:"loadouts"`
	Loadout  string `toml:"loadout" yaml:"loadout"`
	Seed     int64  `toml:"seed" yaml:"seed"`
	Log      struct {
		Level  string `toml:"level" yaml:"level"`
		Format string `toml:"format" yaml:"format"`
	} `toml:"log" yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine:  EngineConfig{MaxDepth: 1000, MaxSteps: 100000},
		Timings: map[string]time.Duration{},
		Server:  ServerConfig{TCPAddr: ":7777", WebAddr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path, fills unset fields from Default and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config load failed (%s): unsupported extension %q", path, filepath.Ext(path))
	}

	cfg, err := raw.resolve()
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

func (raw fileConfig) resolve() (Config, error) {
	cfg := Default()
	if raw.Engine.MaxDepth != 0 {
		cfg.Engine.MaxDepth = raw.Engine.MaxDepth
	}
	if raw.Engine.MaxSteps != 0 {
		cfg.Engine.MaxSteps = raw.Engine.MaxSteps
	}
	for event, v := range raw.Timings {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("parse timing %q: %w", event, err)
		}
		cfg.Timings[event] = d
	}
	if addr := strings.TrimSpace(raw.Server.TCPAddr); addr != "" {
		cfg.Server.TCPAddr = addr
	}
	if addr := strings.TrimSpace(raw.Server.WebAddr); addr != "" {
		cfg.Server.WebAddr = addr
	}
	cfg.Loadouts = strings.TrimSpace(raw.Loadouts)
	cfg.Loadout = strings.TrimSpace(raw.Loadout)
	cfg.Seed = raw.Seed
	if lvl := strings.TrimSpace(raw.Log.Level); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format := strings.TrimSpace(raw.Log.Format); format != "" {
		cfg.Log.Format = format
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Engine.MaxDepth <= 0 {
		return fmt.Errorf("engine max_depth must be positive, got %d", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine max_steps must be positive, got %d", cfg.Engine.MaxSteps)
	}
	for event, d := range cfg.Timings {
		if d < 0 {
			return fmt.Errorf("timing %q is negative", event)
		}
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", cfg.Log.Format)
	}
	return nil
}
