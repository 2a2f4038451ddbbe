// Package message defines the wire shapes used to replicate entity state
// between processes. The flat forms carry repeated entries and are cheap to
// build; the keyed forms index entities and components by id for O(1) merge
// on the receiving side.
package message

import (
	"github.com/simforge/simstate/types"
)

// RemovedComponentData is the placeholder payload carried by component
// entries that only signal a removal. Apply paths skip components with no
// data, so removal entries must carry at least one byte.
const RemovedComponentData = " "

// Component is one serialized component payload.
type Component struct {
	Type      types.ComponentTypeID `json:"type"`
	Component []byte                `json:"component,omitempty"`
	Remove    bool                  `json:"remove,omitempty"`
}

// Entity is one entity with its serialized components, flat form.
type Entity struct {
	ID         types.EntityID `json:"id"`
	Remove     bool           `json:"remove,omitempty"`
	Components []Component    `json:"components,omitempty"`
}

// State is a full or incremental snapshot, flat form.
type State struct {
	Entities []Entity `json:"entities,omitempty"`
}

// AddEntity appends a new entity entry and returns a pointer to it. The
// pointer is invalidated by the next AddEntity call.
func (s *State) AddEntity(id types.EntityID) *Entity {
	s.Entities = append(s.Entities, Entity{ID: id})
	return &s.Entities[len(s.Entities)-1]
}

// EntityMap is one entity with its components keyed by type id.
type EntityMap struct {
	ID         types.EntityID                      `json:"id"`
	Remove     bool                                `json:"remove,omitempty"`
	Components map[types.ComponentTypeID]Component `json:"components,omitempty"`
}

// StateMap is a snapshot with entities keyed by id.
type StateMap struct {
	Entities map[types.EntityID]*EntityMap `json:"entities,omitempty"`

	// HasOneTimeComponentChanges tells the applying side whether component
	// updates should be recorded as one-time changes rather than periodic
	// ones.
	HasOneTimeComponentChanges bool `json:"has_one_time_component_changes,omitempty"`
}

// Entity returns the entry for the given id, inserting an empty one if
// needed.
func (s *StateMap) Entity(id types.EntityID) *EntityMap {
	if s.Entities == nil {
		s.Entities = make(map[types.EntityID]*EntityMap)
	}
	ent, ok := s.Entities[id]
	if !ok {
		ent = &EntityMap{ID: id}
		s.Entities[id] = ent
	}
	return ent
}

// SetEntity stores the entry under its id, replacing any existing entry.
func (s *StateMap) SetEntity(ent *EntityMap) {
	if s.Entities == nil {
		s.Entities = make(map[types.EntityID]*EntityMap)
	}
	s.Entities[ent.ID] = ent
}

// SetComponent stores a component entry on the entity, replacing any entry of
// the same type.
func (e *EntityMap) SetComponent(c Component) {
	if e.Components == nil {
		e.Components = make(map[types.ComponentTypeID]Component)
	}
	e.Components[c.Type] = c
}
