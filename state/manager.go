// Package state implements the in-memory entity/component core of the
// simulation runtime: entity lifecycle, component storage, the parent/child
// graph, cached query views, change tracking, and state replication messages.
package state

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/simforge/simstate/component"
	"github.com/simforge/simstate/entitygraph"
	"github.com/simforge/simstate/filter"
	"github.com/simforge/simstate/log"
	"github.com/simforge/simstate/types"
)

// Manager maintains the population of entities and their components, powers
// query views used by simulation systems each tick, tracks what changed
// between ticks, and serializes incremental or full state snapshots.
//
// A single owning goroutine performs mutations. The manager's mutexes guard
// the individual change-tracking sets so transient reader goroutines (such as
// the parallel snapshot builders) can observe them; they do not make the
// whole manager safe for concurrent mutation.
type Manager struct {
	logger   zerolog.Logger
	registry *component.Registry

	storage  *componentStorage
	entities *entitygraph.Graph

	// entityComponents maps each entity to the set of component types
	// currently on it. Any structural change must set entityComponentsDirty.
	entityComponents      map[types.EntityID]map[types.ComponentTypeID]struct{}
	entityComponentsDirty bool

	// stateShards caches the entity-id shards the parallel snapshot build
	// distributes over worker goroutines. Recomputed when
	// entityComponentsDirty is set.
	stateShards  [][]types.EntityID
	stateWorkers int

	// createdCompTypes records every component type that has ever been
	// instantiated in this manager. Monotone within a session.
	createdCompTypes map[types.ComponentTypeID]struct{}

	periodicChangedComponents map[types.ComponentTypeID]map[types.EntityID]struct{}
	oneTimeChangedComponents  map[types.ComponentTypeID]map[types.EntityID]struct{}

	newlyCreatedEntities map[types.EntityID]struct{}
	toRemoveEntities     map[types.EntityID]struct{}
	removeAllEntities    bool

	// modifiedComponents holds entities with component changes that are not
	// themselves newly created or pending removal, so incremental state does
	// not report them twice.
	modifiedComponents map[types.EntityID]struct{}

	// removedComponents maps an entity to the component types removed from
	// it since the last ClearRemovedComponents.
	removedComponents map[types.EntityID]map[types.ComponentTypeID]struct{}

	views map[viewKey]*View

	descendantCache map[types.EntityID]map[types.EntityID]struct{}

	entityCount uint64

	// printedComps suppresses repeated warnings about unregistered component
	// types during deserialization, once per type per manager.
	printedComps map[types.ComponentTypeID]struct{}

	entityCreatedMutex     sync.Mutex
	entityRemoveMutex      sync.Mutex
	viewsMutex             sync.Mutex
	removedComponentsMutex sync.Mutex
}

// Option augments manager construction.
type Option func(*Manager)

// WithLogger replaces the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithStateWorkers caps the number of goroutines a full snapshot build may
// spawn. Zero means the number of CPUs.
func WithStateWorkers(n int) Option {
	return func(m *Manager) {
		m.stateWorkers = n
	}
}

// NewManager creates an empty manager using the given component registry.
func NewManager(registry *component.Registry, opts ...Option) *Manager {
	m := &Manager{
		logger:   zerolog.Nop(),
		registry: registry,

		storage:  newComponentStorage(),
		entities: entitygraph.New(),

		entityComponents:      make(map[types.EntityID]map[types.ComponentTypeID]struct{}),
		entityComponentsDirty: true,

		createdCompTypes: make(map[types.ComponentTypeID]struct{}),

		periodicChangedComponents: make(map[types.ComponentTypeID]map[types.EntityID]struct{}),
		oneTimeChangedComponents:  make(map[types.ComponentTypeID]map[types.EntityID]struct{}),

		newlyCreatedEntities: make(map[types.EntityID]struct{}),
		toRemoveEntities:     make(map[types.EntityID]struct{}),
		modifiedComponents:   make(map[types.EntityID]struct{}),
		removedComponents:    make(map[types.EntityID]map[types.ComponentTypeID]struct{}),

		views:           make(map[viewKey]*View),
		descendantCache: make(map[types.EntityID]map[types.EntityID]struct{}),
		printedComps:    make(map[types.ComponentTypeID]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the component factory the manager was built with.
func (m *Manager) Registry() *component.Registry {
	return m.registry
}

// EntityCount returns the number of entities currently alive.
func (m *Manager) EntityCount() int {
	return m.entities.VertexCount()
}

// CreateEntity allocates a fresh entity id and creates the entity. When the
// id space is exhausted the maximum id is returned without creating an
// entity.
func (m *Manager) CreateEntity() types.EntityID {
	m.entityCount++
	entity := types.EntityID(m.entityCount)

	if entity == types.MaxEntity {
		m.logger.Warn().Uint64("entity_id", uint64(entity)).
			Msg("reached maximum number of entities")
		return entity
	}

	return m.CreateEntityWithID(entity)
}

// CreateEntityWithID creates an entity under a specific id. Used when
// replaying state built elsewhere; most callers want CreateEntity.
func (m *Manager) CreateEntityWithID(entity types.EntityID) types.EntityID {
	m.entities.AddVertex(entity)

	m.entityCreatedMutex.Lock()
	m.newlyCreatedEntities[entity] = struct{}{}
	m.entityCreatedMutex.Unlock()

	// Parentage changed, so any cached descendant set may be stale.
	m.clearDescendantCache()

	if !m.storage.AddEntity(entity) {
		m.logger.Warn().Uint64("entity_id", uint64(entity)).
			Msg("entity is already in component storage")
	}

	return entity
}

// HasEntity reports whether the entity currently exists.
func (m *Manager) HasEntity(e types.EntityID) bool {
	return m.entities.VertexFromID(e) != types.NullEntity
}

// Entities returns the parent/child graph over all entities.
func (m *Manager) Entities() *entitygraph.Graph {
	return m.entities
}

// ParentEntity returns the parent of the entity, or NullEntity.
func (m *Manager) ParentEntity(e types.EntityID) types.EntityID {
	parents := m.entities.AdjacentsTo(e)
	if len(parents) == 0 {
		return types.NullEntity
	}
	return parents[0]
}

// SetParentEntity makes parent the single parent of child, clearing any
// existing parents first. Passing NullEntity leaves the child parent-less.
func (m *Manager) SetParentEntity(child, parent types.EntityID) bool {
	for _, p := range m.entities.AdjacentsTo(child) {
		m.entities.RemoveEdge(p, child)
	}

	if parent == types.NullEntity {
		return true
	}

	return m.entities.AddEdge(parent, child)
}

// Descendants returns the entity and everything below it in the parent/child
// graph, in no particular order. The returned set is shared with an internal
// cache that lives until the next entity create or remove; callers must not
// modify it.
func (m *Manager) Descendants(e types.EntityID) map[types.EntityID]struct{} {
	if cached, ok := m.descendantCache[e]; ok {
		return cached
	}

	descendants := make(map[types.EntityID]struct{})
	if !m.HasEntity(e) {
		return descendants
	}

	for _, id := range m.entities.BreadthFirstSort(e) {
		descendants[id] = struct{}{}
	}

	m.descendantCache[e] = descendants
	return descendants
}

func (m *Manager) clearDescendantCache() {
	m.descendantCache = make(map[types.EntityID]map[types.EntityID]struct{})
}

func (m *Manager) insertEntityRecursive(e types.EntityID, set map[types.EntityID]struct{}) {
	for _, child := range m.entities.AdjacentsFrom(e) {
		m.insertEntityRecursive(child, set)
	}
	set[e] = struct{}{}
}

// RequestRemoveEntity queues the entity, and optionally all its descendants,
// for removal on the next ProcessRemoveEntityRequests.
func (m *Manager) RequestRemoveEntity(e types.EntityID, recursive bool) {
	tmpToRemove := make(map[types.EntityID]struct{})
	if !recursive {
		tmpToRemove[e] = struct{}{}
	} else {
		m.insertEntityRecursive(e, tmpToRemove)
	}

	m.entityRemoveMutex.Lock()
	for id := range tmpToRemove {
		m.toRemoveEntities[id] = struct{}{}
	}
	m.entityRemoveMutex.Unlock()

	for id := range tmpToRemove {
		for _, view := range m.views {
			view.MarkEntityToRemove(id)
		}
	}
}

// RequestRemoveEntities queues every entity for removal.
func (m *Manager) RequestRemoveEntities() {
	m.entityRemoveMutex.Lock()
	m.removeAllEntities = true
	m.entityRemoveMutex.Unlock()

	m.RebuildViews()
}

// ProcessRemoveEntityRequests removes every entity queued by
// RequestRemoveEntity or RequestRemoveEntities.
func (m *Manager) ProcessRemoveEntityRequests() {
	m.entityRemoveMutex.Lock()
	defer m.entityRemoveMutex.Unlock()

	if m.removeAllEntities {
		m.logger.Debug().Msg("removing all entities")
		m.removeAllEntities = false
		m.entities = entitygraph.New()
		m.entityComponents = make(map[types.EntityID]map[types.ComponentTypeID]struct{})
		m.toRemoveEntities = make(map[types.EntityID]struct{})
		m.entityComponentsDirty = true

		m.storage = newComponentStorage()

		// All views are now invalid.
		m.views = make(map[viewKey]*View)
	} else {
		for entity := range m.toRemoveEntities {
			if !m.HasEntity(entity) {
				continue
			}

			m.entities.RemoveVertex(entity)

			if _, ok := m.entityComponents[entity]; ok {
				m.storage.RemoveEntity(entity)
				delete(m.entityComponents, entity)
				m.entityComponentsDirty = true
			}

			for _, view := range m.views {
				view.RemoveEntity(entity)
			}
		}
		m.toRemoveEntities = make(map[types.EntityID]struct{})
	}

	m.clearDescendantCache()
}

// CreateComponent attaches a component to the entity, seeding the stored
// payload from the given component's value. The returned flag tells the
// caller whether an existing payload was overwritten and its own copy of the
// data should be refreshed.
func (m *Manager) CreateComponent(e types.EntityID, c component.Component) bool {
	if c == nil {
		return false
	}
	return m.CreateComponentImplementation(e, c.TypeID(), c)
}

// CreateComponentImplementation attaches a component of the given type to the
// entity, seeding its value from seed when non-nil.
func (m *Manager) CreateComponentImplementation(
	e types.EntityID, typeID types.ComponentTypeID, seed component.Component,
) bool {
	if !m.HasEntity(e) {
		m.logger.Error().
			Uint64("entity_id", uint64(e)).
			Uint64("component_type_id", uint64(typeID)).
			Msg("cannot create component: entity does not exist")
		return false
	}

	// The first time a type shows up it must be known to the factory.
	if !m.HasComponentType(typeID) && !m.registry.HasType(typeID) {
		m.logger.Error().
			Uint64("entity_id", uint64(e)).
			Uint64("component_type_id", uint64(typeID)).
			Msg("cannot create component: type has not been registered")
		return false
	}

	newComp, err := m.registry.NewFrom(typeID, seed)
	if err != nil {
		m.logger.Error().Err(err).
			Uint64("entity_id", uint64(e)).
			Uint64("component_type_id", uint64(typeID)).
			Msg("failed to instantiate component")
		return false
	}

	// Assume the component data needs to be updated externally unless this
	// turns out to be a brand new addition.
	updateData := true

	m.addModifiedComponent(e)
	compSet, ok := m.entityComponents[e]
	if !ok {
		compSet = make(map[types.ComponentTypeID]struct{})
		m.entityComponents[e] = compSet
	}
	compSet[typeID] = struct{}{}
	m.insertOneTimeChanged(e, typeID)
	m.entityComponentsDirty = true

	switch m.storage.AddComponent(e, newComp) {
	case types.FailedAddition:
		m.logger.Error().
			Uint64("entity_id", uint64(e)).
			Uint64("component_type_id", uint64(typeID)).
			Msg("failed to add component to storage")
		return false
	case types.NewAddition:
		updateData = false
		isNew := m.IsNewEntity(e)
		for _, view := range m.views {
			if m.matchesFilter(e, view.typeFilter) {
				view.MarkEntityToAdd(e, isNew)
			}
		}
	case types.ReAddition:
		isNew := m.IsNewEntity(e)
		for _, view := range m.views {
			view.NotifyComponentAddition(e, isNew, typeID)
		}
	case types.Modification:
	}

	m.createdCompTypes[typeID] = struct{}{}

	log.Entity(&m.logger, zerolog.DebugLevel, e, m.ComponentTypes(e))

	return updateData
}

// RemoveComponent detaches the component of the given type from the entity.
// Returns false if the entity does not have the type.
func (m *Manager) RemoveComponent(e types.EntityID, typeID types.ComponentTypeID) bool {
	if !m.EntityHasComponentType(e, typeID) {
		return false
	}

	delete(m.entityComponents[e], typeID)
	m.entityComponentsDirty = true

	m.eraseChanged(m.oneTimeChangedComponents, e, typeID)
	m.eraseChanged(m.periodicChangedComponents, e, typeID)

	if removed := m.storage.RemoveComponent(e, typeID); removed != nil {
		for _, view := range m.views {
			view.NotifyComponentRemoval(e, typeID)
		}
	}

	m.addModifiedComponent(e)

	m.removedComponentsMutex.Lock()
	removedSet, ok := m.removedComponents[e]
	if !ok {
		removedSet = make(map[types.ComponentTypeID]struct{})
		m.removedComponents[e] = removedSet
	}
	removedSet[typeID] = struct{}{}
	m.removedComponentsMutex.Unlock()

	return true
}

// RemoveComponentByKey detaches the component addressed by the key.
func (m *Manager) RemoveComponentByKey(key types.ComponentKey) bool {
	return m.RemoveComponent(key.Entity, key.TypeID)
}

// EntityHasComponent reports whether the entity holds the component addressed
// by the key.
func (m *Manager) EntityHasComponent(key types.ComponentKey) bool {
	return m.EntityHasComponentType(key.Entity, key.TypeID)
}

// EntityHasComponentType reports whether the entity holds a component of the
// given type.
func (m *Manager) EntityHasComponentType(e types.EntityID, typeID types.ComponentTypeID) bool {
	if !m.HasEntity(e) {
		return false
	}
	compSet, ok := m.entityComponents[e]
	if !ok {
		return false
	}
	_, ok = compSet[typeID]
	return ok
}

// Component returns a borrow of the payload of the given type on the entity,
// or nil. The borrow is valid until the next structural mutation of the same
// (entity, type) pair.
func (m *Manager) Component(e types.EntityID, typeID types.ComponentTypeID) component.Component {
	return m.storage.ValidComponent(e, typeID)
}

// ComponentBytes returns the serialized payload of the given component, or
// nil if the entity lacks the type.
func (m *Manager) ComponentBytes(e types.EntityID, typeID types.ComponentTypeID) ([]byte, error) {
	comp := m.storage.ValidComponent(e, typeID)
	if comp == nil {
		return nil, nil
	}
	return comp.Serialize()
}

// HasComponentType reports whether a component of the given type has ever
// been created in this manager.
func (m *Manager) HasComponentType(typeID types.ComponentTypeID) bool {
	_, ok := m.createdCompTypes[typeID]
	return ok
}

// ComponentTypes returns the component types currently on the entity.
func (m *Manager) ComponentTypes(e types.EntityID) []types.ComponentTypeID {
	compSet, ok := m.entityComponents[e]
	if !ok {
		return nil
	}
	out := make([]types.ComponentTypeID, 0, len(compSet))
	for id := range compSet {
		out = append(out, id)
	}
	return out
}

// ComponentState reports how the component has changed since the ledger was
// last cleared. A one-time change dominates a periodic one.
func (m *Manager) ComponentState(e types.EntityID, typeID types.ComponentTypeID) types.ChangeState {
	compSet, ok := m.entityComponents[e]
	if !ok {
		return types.NoChange
	}
	if _, ok := compSet[typeID]; !ok {
		return types.NoChange
	}

	if entities, ok := m.oneTimeChangedComponents[typeID]; ok {
		if _, ok := entities[e]; ok {
			return types.OneTimeChange
		}
	}
	if entities, ok := m.periodicChangedComponents[typeID]; ok {
		if _, ok := entities[e]; ok {
			return types.PeriodicChange
		}
	}
	return types.NoChange
}

// SetChanged records a change of the given kind for the component. NoChange
// clears both ledgers for the pair.
func (m *Manager) SetChanged(
	e types.EntityID, typeID types.ComponentTypeID, state types.ChangeState,
) {
	compSet, ok := m.entityComponents[e]
	if !ok {
		return
	}
	if _, ok := compSet[typeID]; !ok {
		return
	}

	switch state {
	case types.PeriodicChange:
		m.insertPeriodicChanged(e, typeID)
	case types.OneTimeChange:
		m.insertOneTimeChanged(e, typeID)
	default:
		m.eraseChanged(m.oneTimeChangedComponents, e, typeID)
		m.eraseChanged(m.periodicChangedComponents, e, typeID)
	}

	m.addModifiedComponent(e)
}

func (m *Manager) insertOneTimeChanged(e types.EntityID, typeID types.ComponentTypeID) {
	m.eraseChanged(m.periodicChangedComponents, e, typeID)
	entities, ok := m.oneTimeChangedComponents[typeID]
	if !ok {
		entities = make(map[types.EntityID]struct{})
		m.oneTimeChangedComponents[typeID] = entities
	}
	entities[e] = struct{}{}
}

func (m *Manager) insertPeriodicChanged(e types.EntityID, typeID types.ComponentTypeID) {
	m.eraseChanged(m.oneTimeChangedComponents, e, typeID)
	entities, ok := m.periodicChangedComponents[typeID]
	if !ok {
		entities = make(map[types.EntityID]struct{})
		m.periodicChangedComponents[typeID] = entities
	}
	entities[e] = struct{}{}
}

func (m *Manager) eraseChanged(
	ledger map[types.ComponentTypeID]map[types.EntityID]struct{},
	e types.EntityID, typeID types.ComponentTypeID,
) {
	entities, ok := ledger[typeID]
	if !ok {
		return
	}
	delete(entities, e)
	if len(entities) == 0 {
		delete(ledger, typeID)
	}
}

func (m *Manager) addModifiedComponent(e types.EntityID) {
	if _, ok := m.newlyCreatedEntities[e]; ok {
		return
	}
	if _, ok := m.toRemoveEntities[e]; ok {
		return
	}
	if _, ok := m.modifiedComponents[e]; ok {
		return
	}
	m.modifiedComponents[e] = struct{}{}
}

// IsNewEntity reports whether the entity was created since the last
// ClearNewlyCreatedEntities.
func (m *Manager) IsNewEntity(e types.EntityID) bool {
	m.entityCreatedMutex.Lock()
	defer m.entityCreatedMutex.Unlock()
	_, ok := m.newlyCreatedEntities[e]
	return ok
}

// IsMarkedForRemoval reports whether the entity is queued for removal.
func (m *Manager) IsMarkedForRemoval(e types.EntityID) bool {
	m.entityRemoveMutex.Lock()
	defer m.entityRemoveMutex.Unlock()
	if m.removeAllEntities {
		return true
	}
	_, ok := m.toRemoveEntities[e]
	return ok
}

// HasNewEntities reports whether any entity was created since the last
// ClearNewlyCreatedEntities.
func (m *Manager) HasNewEntities() bool {
	m.entityCreatedMutex.Lock()
	defer m.entityCreatedMutex.Unlock()
	return len(m.newlyCreatedEntities) > 0
}

// HasEntitiesMarkedForRemoval reports whether any removal is pending.
func (m *Manager) HasEntitiesMarkedForRemoval() bool {
	m.entityRemoveMutex.Lock()
	defer m.entityRemoveMutex.Unlock()
	return m.removeAllEntities || len(m.toRemoveEntities) > 0
}

// HasOneTimeComponentChanges reports whether any one-time change is pending.
func (m *Manager) HasOneTimeComponentChanges() bool {
	return len(m.oneTimeChangedComponents) > 0
}

// ComponentTypesWithPeriodicChanges returns every component type that has a
// pending periodic change.
func (m *Manager) ComponentTypesWithPeriodicChanges() []types.ComponentTypeID {
	if len(m.periodicChangedComponents) == 0 {
		return nil
	}
	out := make([]types.ComponentTypeID, 0, len(m.periodicChangedComponents))
	for id := range m.periodicChangedComponents {
		out = append(out, id)
	}
	return out
}

// ClearNewlyCreatedEntities forgets which entities are newly created, both in
// the ledger and in every view.
func (m *Manager) ClearNewlyCreatedEntities() {
	m.entityCreatedMutex.Lock()
	m.newlyCreatedEntities = make(map[types.EntityID]struct{})
	m.entityCreatedMutex.Unlock()

	for _, view := range m.views {
		view.ResetNewEntityState()
	}
}

// ClearRemovedComponents forgets which components were removed.
func (m *Manager) ClearRemovedComponents() {
	m.removedComponentsMutex.Lock()
	m.removedComponents = make(map[types.EntityID]map[types.ComponentTypeID]struct{})
	m.removedComponentsMutex.Unlock()
}

// SetAllComponentsUnchanged clears the periodic, one-time, and modified
// ledgers.
func (m *Manager) SetAllComponentsUnchanged() {
	m.periodicChangedComponents = make(map[types.ComponentTypeID]map[types.EntityID]struct{})
	m.oneTimeChangedComponents = make(map[types.ComponentTypeID]map[types.EntityID]struct{})
	m.modifiedComponents = make(map[types.EntityID]struct{})
}

// SetEntityCreateOffset moves the entity id allocator. Setting an offset
// below the current counter risks id collisions and is only warned about.
func (m *Manager) SetEntityCreateOffset(offset uint64) {
	if offset < m.entityCount {
		m.logger.Warn().
			Uint64("offset", offset).
			Uint64("entity_count", m.entityCount).
			Msg("entity create offset is less than the current entity count")
	}
	m.entityCount = offset
}

// EntityMatches reports whether the entity holds every component type in the
// given set.
func (m *Manager) EntityMatches(e types.EntityID, componentTypes []types.ComponentTypeID) bool {
	return m.matchesFilter(e, filter.Contains(componentTypes...))
}

func (m *Manager) matchesFilter(e types.EntityID, f filter.TypeFilter) bool {
	compSet, ok := m.entityComponents[e]
	if !ok {
		return false
	}
	held := make([]types.ComponentTypeID, 0, len(compSet))
	for id := range compSet {
		held = append(held, id)
	}
	return f.Matches(held)
}

// FindView returns the cached view over the given component types, or nil.
func (m *Manager) FindView(componentTypes []types.ComponentTypeID) *View {
	m.viewsMutex.Lock()
	defer m.viewsMutex.Unlock()
	view, ok := m.views[keyForTypes(componentTypes)]
	if !ok || !view.sameTypeSet(componentTypes) {
		return nil
	}
	return view
}

// AddView registers the view under its component type key and returns the
// view stored in the cache. If a view with the same key already exists it is
// kept and returned instead.
func (m *Manager) AddView(view *View) *View {
	m.viewsMutex.Lock()
	defer m.viewsMutex.Unlock()
	key := keyForTypes(view.ComponentTypes())
	if existing, ok := m.views[key]; ok {
		return existing
	}
	m.views[key] = view
	return view
}

// RebuildViews resets every view and repopulates it from the entity graph.
func (m *Manager) RebuildViews() {
	for _, view := range m.views {
		view.Reset()

		for _, entity := range m.entities.Vertices() {
			if !m.matchesFilter(entity, view.typeFilter) {
				continue
			}
			view.MarkEntityToAdd(entity, m.IsNewEntity(entity))

			if m.IsMarkedForRemoval(entity) {
				view.MarkEntityToRemove(entity)
			}
		}
	}
}

// viewForTypes returns the up-to-date view over the given component types,
// lazily creating and populating it on the first miss.
func (m *Manager) viewForTypes(componentTypes []types.ComponentTypeID) *View {
	view := m.FindView(componentTypes)
	if view == nil {
		view = m.AddView(NewView(componentTypes...))
		for _, entity := range m.entities.Vertices() {
			if m.matchesFilter(entity, view.typeFilter) {
				view.MarkEntityToAdd(entity, m.IsNewEntity(entity))
			}
		}
	}
	view.update(m.matchesFilter)
	return view
}

// Each calls fn for every entity holding all of the given component types,
// using a cached view. Iteration stops early if fn returns false.
func (m *Manager) Each(componentTypes []types.ComponentTypeID, fn func(types.EntityID) bool) {
	for _, entity := range m.viewForTypes(componentTypes).Entities() {
		if !fn(entity) {
			return
		}
	}
}

// EachNew is like Each but only visits matching entities created since the
// last ClearNewlyCreatedEntities.
func (m *Manager) EachNew(componentTypes []types.ComponentTypeID, fn func(types.EntityID) bool) {
	for _, entity := range m.viewForTypes(componentTypes).NewEntities() {
		if !fn(entity) {
			return
		}
	}
}
