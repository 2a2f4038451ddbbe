package simstate_test

import (
	"testing"

	"github.com/simforge/simstate"
	"github.com/simforge/simstate/assert"
	"github.com/simforge/simstate/component"
	"github.com/simforge/simstate/types"
)

type Odometry struct {
	Distance float64
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := simstate.LoadConfig()
	assert.NilError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 0, cfg.StateWorkers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SIMSTATE_LOG_LEVEL", "debug")
	t.Setenv("SIMSTATE_STATE_WORKERS", "4")

	cfg, err := simstate.LoadConfig()
	assert.NilError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.StateWorkers)
}

func TestNewManager(t *testing.T) {
	reg := component.NewRegistry()
	meta, err := component.Register[Odometry](reg, 1)
	assert.NilError(t, err)

	m := simstate.New(reg)
	e := m.CreateEntity()
	m.CreateComponent(e, component.NewValue(meta, Odometry{Distance: 12}))

	assert.Equal(t, 1, m.EntityCount())
	assert.True(t, m.EntityHasComponentType(e, types.ComponentTypeID(1)))
}
