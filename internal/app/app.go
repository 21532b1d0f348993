// Package app turns a config file into the pieces every binary needs: the
// operational logger, the metrics registry and the session template.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/peterkuimelis/clash/internal/battle"
	"github.com/peterkuimelis/clash/internal/config"
	"github.com/peterkuimelis/clash/internal/logging"
	"github.com/peterkuimelis/clash/internal/metrics"
	clashnet "github.com/peterkuimelis/clash/internal/net"
)

type Env struct {
	Config  config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Session clashnet.SessionConfig
}

// Load reads configPath (empty for defaults) and builds the environment for
// the named binary. Logs go to stderr.
func Load(name, configPath string) (*Env, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}
	lc := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
		lc.Level = lvl
	}
	lc.Format = cfg.Log.Format
	logging.ApplyEnv(&lc)
	logger := logging.New(os.Stderr, name, lc)
	return Build(cfg, logger)
}

// Build assembles an Env from an already loaded config.
func Build(cfg config.Config, logger zerolog.Logger) (*Env, error) {
	loadouts, err := loadLoadouts(cfg.Loadouts, cfg.Loadout)
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	m := metrics.New()
	env := &Env{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Session: clashnet.SessionConfig{
			Battle: battle.Config{
				Catalogue:    battle.DefaultCatalogue,
				Seed:         seed,
				Timings:      battle.Timings(cfg.Timings),
				MaxDepth:     cfg.Engine.MaxDepth,
				MaxSteps:     cfg.Engine.MaxSteps,
				Observer:     m,
				AnimObserver: m,
			},
			Loadouts: loadouts,
			Tracker:  m,
			Logger:   logger,
		},
	}
	logger.Debug().
		Int("loadouts", len(loadouts)).
		Int64("seed", seed).
		Int("max_depth", cfg.Engine.MaxDepth).
		Msg("environment ready")
	return env, nil
}

// loadLoadouts reads and validates path. The loadout called preferred, when
// set, is moved to the front so it becomes the default.
func loadLoadouts(path, preferred string) ([]battle.Loadout, error) {
	if path == "" {
		if preferred != "" && preferred != battle.Starter.Name {
			return nil, fmt.Errorf("loadout %q: no loadouts file configured", preferred)
		}
		return nil, nil
	}
	loadouts, err := battle.ParseLoadoutFile(path)
	if err != nil {
		return nil, fmt.Errorf("load loadouts (%s): %w", path, err)
	}
	if len(loadouts) == 0 {
		return nil, fmt.Errorf("%s: no loadouts", path)
	}
	for i := range loadouts {
		if err := loadouts[i].Validate(battle.DefaultCatalogue); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if preferred == "" {
		return loadouts, nil
	}
	for i, l := range loadouts {
		if l.Name == preferred {
			loadouts[0], loadouts[i] = loadouts[i], loadouts[0]
			return loadouts, nil
		}
	}
	return nil, fmt.Errorf("loadout %q not found in %s", preferred, path)
}
