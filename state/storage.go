package state

import (
	"github.com/simforge/simstate/component"
	"github.com/simforge/simstate/types"
)

// componentSlot holds one owned payload. A slot outlives the removal of its
// payload so a later re-addition of the same type can be distinguished from a
// brand new addition.
type componentSlot struct {
	comp    component.Component
	removed bool
}

// componentStorage owns every component payload, keyed by entity and type id.
// Pointers returned by ValidComponent are borrows; they are valid only until
// the next mutating call for the same (entity, type) pair.
type componentStorage struct {
	slots map[types.EntityID]map[types.ComponentTypeID]*componentSlot
}

func newComponentStorage() *componentStorage {
	return &componentStorage{
		slots: make(map[types.EntityID]map[types.ComponentTypeID]*componentSlot),
	}
}

// AddEntity registers an entity. Returns false if the entity is already
// registered.
func (s *componentStorage) AddEntity(e types.EntityID) bool {
	if _, ok := s.slots[e]; ok {
		return false
	}
	s.slots[e] = make(map[types.ComponentTypeID]*componentSlot)
	return true
}

// RemoveEntity drops the entity and every component it owns.
func (s *componentStorage) RemoveEntity(e types.EntityID) {
	delete(s.slots, e)
}

// AddComponent attaches the payload to the entity and reports how the
// attachment changed the entity's component set.
func (s *componentStorage) AddComponent(
	e types.EntityID, comp component.Component,
) types.AdditionOutcome {
	entitySlots, ok := s.slots[e]
	if !ok {
		return types.FailedAddition
	}
	slot, ok := entitySlots[comp.TypeID()]
	if !ok {
		entitySlots[comp.TypeID()] = &componentSlot{comp: comp}
		return types.NewAddition
	}
	wasRemoved := slot.removed
	slot.comp = comp
	slot.removed = false
	if wasRemoved {
		return types.ReAddition
	}
	return types.Modification
}

// RemoveComponent detaches the payload of the given type from the entity and
// returns it, or nil if the entity does not currently have the type. The slot
// is kept so that a subsequent AddComponent reports a re-addition.
func (s *componentStorage) RemoveComponent(
	e types.EntityID, typeID types.ComponentTypeID,
) component.Component {
	entitySlots, ok := s.slots[e]
	if !ok {
		return nil
	}
	slot, ok := entitySlots[typeID]
	if !ok || slot.removed {
		return nil
	}
	removed := slot.comp
	slot.comp = nil
	slot.removed = true
	return removed
}

// ValidComponent returns a borrow of the payload of the given type on the
// entity, or nil.
func (s *componentStorage) ValidComponent(
	e types.EntityID, typeID types.ComponentTypeID,
) component.Component {
	entitySlots, ok := s.slots[e]
	if !ok {
		return nil
	}
	slot, ok := entitySlots[typeID]
	if !ok || slot.removed {
		return nil
	}
	return slot.comp
}

// HasEntity reports whether the entity is registered.
func (s *componentStorage) HasEntity(e types.EntityID) bool {
	_, ok := s.slots[e]
	return ok
}
