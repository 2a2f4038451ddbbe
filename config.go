package simstate

import (
	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
)

// Config carries the environment-tunable settings of the state core.
type Config struct {
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `config:"SIMSTATE_LOG_LEVEL"`

	// LogPretty switches the logger to human-readable console output.
	LogPretty bool `config:"SIMSTATE_LOG_PRETTY"`

	// StateWorkers caps the goroutines a full snapshot build may spawn.
	// Zero means the number of CPUs.
	StateWorkers int `config:"SIMSTATE_STATE_WORKERS"`
}

func defaultConfig() Config {
	return Config{
		LogLevel: "info",
	}
}

// LoadConfig reads the configuration from the environment, falling back to
// defaults for unset values.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "")
	}
	return cfg, nil
}
