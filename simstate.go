// Package simstate is the in-memory state core of a robotics simulation
// runtime. It maintains entities, their typed components and parent/child
// relationships, cached query views for simulation systems, change tracking
// between ticks, and serialization of incremental or full state snapshots
// for network replication.
package simstate

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/simforge/simstate/component"
	"github.com/simforge/simstate/state"
)

// New creates a state manager wired with the environment configuration. The
// registry supplies constructors and codecs for every component type the
// manager will hold; register types before replaying state into it.
func New(registry *component.Registry, opts ...state.Option) *state.Manager {
	cfg, err := LoadConfig()
	logger := newLogger(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load config, using defaults")
	}

	defaults := []state.Option{
		state.WithLogger(logger),
		state.WithStateWorkers(cfg.StateWorkers),
	}
	return state.NewManager(registry, append(defaults, opts...)...)
}

func newLogger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
