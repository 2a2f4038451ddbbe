// Package log builds structured zerolog events for entity and component
// state, shared by the state manager and its callers.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/simforge/simstate/component"
	"github.com/simforge/simstate/types"
)

func loadTypeIntoArrayLogger(id types.ComponentTypeID, arrayLogger *zerolog.Array) *zerolog.Array {
	return arrayLogger.Uint64(uint64(id))
}

func loadEntityIntoEvent(
	event *zerolog.Event, entityID types.EntityID, componentTypes []types.ComponentTypeID,
) *zerolog.Event {
	sorted := make([]types.ComponentTypeID, len(componentTypes))
	copy(sorted, componentTypes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	arrayLogger := zerolog.Arr()
	for _, id := range sorted {
		arrayLogger = loadTypeIntoArrayLogger(id, arrayLogger)
	}
	event.Array("component_types", arrayLogger)
	return event.Uint64("entity_id", uint64(entityID))
}

// Entity logs an entity together with its component types.
func Entity(
	logger *zerolog.Logger, level zerolog.Level,
	entityID types.EntityID, componentTypes []types.ComponentTypeID,
) {
	event := logger.WithLevel(level)
	loadEntityIntoEvent(event, entityID, componentTypes).Send()
}

// Registry logs every component type known to the given registry.
func Registry(logger *zerolog.Logger, registry *component.Registry, level zerolog.Level) {
	ids := registry.TypeIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	event := logger.WithLevel(level)
	event.Int("total_component_types", len(ids))
	arrayLogger := zerolog.Arr()
	for _, id := range ids {
		dictLogger := zerolog.Dict()
		dictLogger = dictLogger.Uint64("component_type_id", uint64(id))
		dictLogger = dictLogger.Str("component_name", registry.Metadata(id).Name())
		arrayLogger = arrayLogger.Dict(dictLogger)
	}
	event.Array("component_types", arrayLogger)
	event.Send()
}
