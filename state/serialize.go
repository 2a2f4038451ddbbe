package state

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/simforge/simstate/message"
	"github.com/simforge/simstate/types"
)

// setRemovedComponentMsgs appends an entry for every component removed from
// the entity, flat form. Removal entries carry a placeholder payload so the
// apply path does not skip them as data-less.
func (m *Manager) setRemovedComponentMsgs(
	e types.EntityID, entityMsg *message.Entity,
	typeFilter map[types.ComponentTypeID]struct{},
) {
	m.removedComponentsMutex.Lock()
	defer m.removedComponentsMutex.Unlock()

	removedSet, ok := m.removedComponents[e]
	if !ok {
		return
	}
	for typeID := range removedSet {
		if len(typeFilter) > 0 {
			if _, ok := typeFilter[typeID]; !ok {
				continue
			}
		}
		entityMsg.Components = append(entityMsg.Components, message.Component{
			Type:      typeID,
			Component: []byte(message.RemovedComponentData),
			Remove:    true,
		})
	}
}

// setRemovedComponentMapMsgs is the keyed-form counterpart. The entity entry
// is created on demand: an entity can have removed components without any
// surviving changed ones.
func (m *Manager) setRemovedComponentMapMsgs(
	e types.EntityID, msg *message.StateMap,
	typeFilter map[types.ComponentTypeID]struct{},
) {
	m.removedComponentsMutex.Lock()
	defer m.removedComponentsMutex.Unlock()

	removedSet, ok := m.removedComponents[e]
	if !ok || len(removedSet) == 0 {
		return
	}

	entityMsg := msg.Entity(e)
	for typeID := range removedSet {
		if len(typeFilter) > 0 {
			if _, ok := typeFilter[typeID]; !ok {
				continue
			}
		}
		entityMsg.SetComponent(message.Component{
			Type:      typeID,
			Component: []byte(message.RemovedComponentData),
			Remove:    true,
		})
	}
}

// AddEntityToMessage appends the entity and its components to the flat-form
// message. An empty componentTypes filter serializes every component on the
// entity.
func (m *Manager) AddEntityToMessage(
	msg *message.State, e types.EntityID, componentTypes ...types.ComponentTypeID,
) {
	entityMsg := msg.AddEntity(e)

	compSet, ok := m.entityComponents[e]
	if !ok {
		return
	}

	if _, ok := m.toRemoveEntities[e]; ok {
		entityMsg.Remove = true
	}

	typeFilter := typeSet(componentTypes)
	serialize := componentTypes
	if len(serialize) == 0 {
		serialize = make([]types.ComponentTypeID, 0, len(compSet))
		for typeID := range compSet {
			serialize = append(serialize, typeID)
		}
	}

	for _, typeID := range serialize {
		if _, ok := compSet[typeID]; !ok {
			continue
		}
		comp := m.storage.ValidComponent(e, typeID)
		if comp == nil {
			continue
		}
		bz, err := comp.Serialize()
		if err != nil {
			m.logger.Error().Err(err).
				Uint64("entity_id", uint64(e)).
				Uint64("component_type_id", uint64(typeID)).
				Msg("failed to serialize component")
			continue
		}
		entityMsg.Components = append(entityMsg.Components, message.Component{
			Type:      comp.TypeID(),
			Component: bz,
		})
	}

	m.setRemovedComponentMsgs(e, entityMsg, typeFilter)
}

// AddEntityToStateMap upserts the entity and its components into the
// keyed-form message. When full is false only components with a pending
// one-time or periodic change are included.
func (m *Manager) AddEntityToStateMap(
	msg *message.StateMap, e types.EntityID,
	componentTypes []types.ComponentTypeID, full bool,
) {
	compSet, ok := m.entityComponents[e]
	if !ok {
		return
	}

	var entityMsg *message.EntityMap
	if _, ok := m.toRemoveEntities[e]; ok {
		entityMsg = msg.Entity(e)
		entityMsg.Remove = true
	}

	typeFilter := typeSet(componentTypes)
	serialize := componentTypes
	if len(serialize) == 0 {
		serialize = make([]types.ComponentTypeID, 0, len(compSet))
		for typeID := range compSet {
			serialize = append(serialize, typeID)
		}
	}

	for _, typeID := range serialize {
		if _, ok := compSet[typeID]; !ok {
			continue
		}
		comp := m.storage.ValidComponent(e, typeID)
		if comp == nil {
			continue
		}

		if !full {
			noChange := true
			if entities, ok := m.oneTimeChangedComponents[typeID]; ok {
				if _, ok := entities[e]; ok {
					noChange = false
				}
			}
			if noChange {
				if entities, ok := m.periodicChangedComponents[typeID]; ok {
					if _, ok := entities[e]; ok {
						noChange = false
					}
				}
			}
			if noChange {
				continue
			}
		}

		bz, err := comp.Serialize()
		if err != nil {
			m.logger.Error().Err(err).
				Uint64("entity_id", uint64(e)).
				Uint64("component_type_id", uint64(typeID)).
				Msg("failed to serialize component")
			continue
		}

		if entityMsg == nil {
			entityMsg = msg.Entity(e)
		}
		entityMsg.SetComponent(message.Component{
			Type:      comp.TypeID(),
			Component: bz,
		})
	}

	m.setRemovedComponentMapMsgs(e, msg, typeFilter)
}

// ChangedState returns a flat-form message carrying every newly created
// entity, every entity pending removal, and every entity with modified
// components.
func (m *Manager) ChangedState() *message.State {
	msg := &message.State{}

	for entity := range m.newlyCreatedEntities {
		m.AddEntityToMessage(msg, entity)
	}
	for entity := range m.toRemoveEntities {
		m.AddEntityToMessage(msg, entity)
	}
	for entity := range m.modifiedComponents {
		m.AddEntityToMessage(msg, entity)
	}

	return msg
}

// ChangedStateMap fills the keyed-form message from the same entities as
// ChangedState (newly created, pending removal, modified components). Unlike
// ChangedState it includes only components with a pending one-time or
// periodic change, plus removed components; an entity with none of those that
// is not pending removal gets no entry.
func (m *Manager) ChangedStateMap(msg *message.StateMap) {
	for entity := range m.newlyCreatedEntities {
		m.AddEntityToStateMap(msg, entity, nil, false)
	}
	for entity := range m.toRemoveEntities {
		m.AddEntityToStateMap(msg, entity, nil, false)
	}
	for entity := range m.modifiedComponents {
		m.AddEntityToStateMap(msg, entity, nil, false)
	}
}

// State returns a flat-form snapshot of every entity in the entity/component
// index, optionally filtered to the given entities and component types.
// Entities that have never been given a component are not in the index and
// are not included.
func (m *Manager) State(
	entities []types.EntityID, componentTypes []types.ComponentTypeID,
) *message.State {
	msg := &message.State{}
	entityFilter := entitySet(entities)

	for entity := range m.entityComponents {
		if len(entityFilter) > 0 {
			if _, ok := entityFilter[entity]; !ok {
				continue
			}
		}
		m.AddEntityToMessage(msg, entity, componentTypes...)
	}

	return msg
}

// calculateStateThreadLoad reshards the entity population across snapshot
// workers. Shards are only recomputed after a structural change to the
// entity/component index.
func (m *Manager) calculateStateThreadLoad() {
	if !m.entityComponentsDirty {
		return
	}
	m.entityComponentsDirty = false
	m.stateShards = nil

	numEntities := len(m.entityComponents)
	if numEntities == 0 {
		return
	}

	maxWorkers := m.stateWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	numWorkers := min(numEntities, maxWorkers)
	perWorker := (numEntities + numWorkers - 1) / numWorkers

	ids := make([]types.EntityID, 0, numEntities)
	for entity := range m.entityComponents {
		ids = append(ids, entity)
	}

	for start := 0; start < numEntities; start += perWorker {
		end := min(start+perWorker, numEntities)
		m.stateShards = append(m.stateShards, ids[start:end])
	}

	m.logger.Debug().
		Int("workers", numWorkers).
		Int("entities_per_worker", perWorker).
		Msg("updated state thread load")
}

// StateMap fills the keyed-form message with a snapshot of every entity in
// the entity/component index, optionally filtered to the given entities and
// component types; an entity gets an entry only if it is pending removal or
// contributes at least one component entry. The build
// is sharded across worker goroutines and merged entity by entity; entry
// order in the result is unspecified.
//
// The manager must not be mutated while StateMap is in flight.
func (m *Manager) StateMap(
	msg *message.StateMap, entities []types.EntityID,
	componentTypes []types.ComponentTypeID, full bool,
) {
	var stateMapMutex sync.Mutex
	entityFilter := entitySet(entities)

	m.calculateStateThreadLoad()

	var eg errgroup.Group
	for _, shard := range m.stateShards {
		shard := shard
		eg.Go(func() error {
			workerMsg := &message.StateMap{}
			for _, entity := range shard {
				if len(entityFilter) > 0 {
					if _, ok := entityFilter[entity]; !ok {
						continue
					}
				}
				m.AddEntityToStateMap(workerMsg, entity, componentTypes, full)
			}

			stateMapMutex.Lock()
			defer stateMapMutex.Unlock()
			for _, entityMsg := range workerMsg.Entities {
				msg.SetEntity(entityMsg)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// SetState applies a flat-form state message: entities are created or queued
// for removal, and components are created, replaced, or removed to match the
// message.
func (m *Manager) SetState(msg *message.State) {
	for i := range msg.Entities {
		entityMsg := &msg.Entities[i]
		entity := entityMsg.ID

		if entityMsg.Remove {
			m.RequestRemoveEntity(entity, true)
			continue
		}

		if !m.HasEntity(entity) {
			m.CreateEntityWithID(entity)
		}

		for j := range entityMsg.Components {
			compMsg := &entityMsg.Components[j]

			// Data-less component entries cannot be applied.
			if len(compMsg.Component) == 0 {
				continue
			}

			if !m.knownOrWarn(compMsg.Type) {
				continue
			}

			// Removal entries carry only the placeholder payload, which does
			// not deserialize; apply them directly.
			if compMsg.Remove {
				m.RemoveComponent(entity, compMsg.Type)
				continue
			}

			newComp := m.registry.New(compMsg.Type)
			if newComp == nil {
				m.logger.Error().
					Uint64("component_type_id", uint64(compMsg.Type)).
					Msg("failed to deserialize component")
				continue
			}
			if err := newComp.Deserialize(compMsg.Component); err != nil {
				m.logger.Error().Err(err).
					Uint64("component_type_id", uint64(compMsg.Type)).
					Msg("failed to deserialize component")
				continue
			}

			typeID := newComp.TypeID()

			// Always drop the current payload first; the create below then
			// installs the deserialized one. Updating in place has never
			// worked on this path, hence the internal-error branch.
			m.RemoveComponent(entity, typeID)

			if m.Component(entity, typeID) == nil {
				m.CreateComponentImplementation(entity, typeID, newComp)
			} else {
				m.logger.Error().
					Uint64("entity_id", uint64(entity)).
					Uint64("component_type_id", uint64(typeID)).
					Msg("internal error: component still present after removal")
			}
		}
	}
}

// SetStateMap applies a keyed-form state message. Existing payloads are
// deserialized in place and flagged with the change kind the message carries.
func (m *Manager) SetStateMap(msg *message.StateMap) {
	for _, entityMsg := range msg.Entities {
		entity := entityMsg.ID

		if entityMsg.Remove {
			m.RequestRemoveEntity(entity, true)
			continue
		}

		if !m.HasEntity(entity) {
			m.CreateEntityWithID(entity)
		}

		for typeID, compMsg := range entityMsg.Components {
			// Data-less component entries cannot be applied.
			if len(compMsg.Component) == 0 {
				continue
			}

			if !m.knownOrWarn(compMsg.Type) {
				continue
			}

			if compMsg.Remove {
				m.RemoveComponent(entity, typeID)
				continue
			}

			comp := m.Component(entity, typeID)
			if comp == nil {
				newComp := m.registry.New(compMsg.Type)
				if newComp == nil {
					m.logger.Error().
						Uint64("component_type_id", uint64(compMsg.Type)).
						Msg("failed to create component")
					continue
				}
				if err := newComp.Deserialize(compMsg.Component); err != nil {
					m.logger.Error().Err(err).
						Uint64("component_type_id", uint64(compMsg.Type)).
						Msg("failed to deserialize component")
					continue
				}
				m.CreateComponentImplementation(entity, newComp.TypeID(), newComp)
			} else {
				if err := comp.Deserialize(compMsg.Component); err != nil {
					m.logger.Error().Err(err).
						Uint64("entity_id", uint64(entity)).
						Uint64("component_type_id", uint64(typeID)).
						Msg("failed to deserialize component")
					continue
				}
				changeState := types.PeriodicChange
				if msg.HasOneTimeComponentChanges {
					changeState = types.OneTimeChange
				}
				m.SetChanged(entity, typeID, changeState)
			}
		}
	}
}

// knownOrWarn reports whether the component type is registered, warning once
// per type per manager when it is not. Unregistered types show up when
// another process streams components this one never linked in.
func (m *Manager) knownOrWarn(typeID types.ComponentTypeID) bool {
	if m.registry.HasType(typeID) {
		return true
	}
	if _, ok := m.printedComps[typeID]; !ok {
		m.printedComps[typeID] = struct{}{}
		m.logger.Warn().
			Uint64("component_type_id", uint64(typeID)).
			Msg("component type has not been registered in this process, so it can't be deserialized")
	}
	return false
}

func typeSet(ids []types.ComponentTypeID) map[types.ComponentTypeID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[types.ComponentTypeID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func entitySet(ids []types.EntityID) map[types.EntityID]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[types.EntityID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
