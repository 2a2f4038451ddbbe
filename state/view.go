package state

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/simforge/simstate/filter"
	"github.com/simforge/simstate/types"
)

// viewKey identifies a view by its component type set. The key is a hash
// that is independent of the order the type ids were given in; FindView
// verifies the full type set on lookup so a hash collision can never hand
// back the wrong view.
type viewKey uint64

func keyForTypes(componentTypes []types.ComponentTypeID) viewKey {
	sorted := make([]types.ComponentTypeID, len(componentTypes))
	copy(sorted, componentTypes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	h := xxhash.New()
	var buf [8]byte
	for _, id := range sorted {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = h.Write(buf[:])
	}
	return viewKey(h.Sum64())
}

// View materializes the set of entities holding a fixed set of component
// types, with incremental bookkeeping for pending additions and removals and
// for entities that are new since the last tick.
type View struct {
	componentTypes []types.ComponentTypeID
	typeSet        map[types.ComponentTypeID]struct{}
	typeFilter     filter.TypeFilter

	entities    map[types.EntityID]struct{}
	newEntities map[types.EntityID]struct{}

	// toAdd maps a pending entity to its is-new tag.
	toAdd    map[types.EntityID]bool
	toRemove map[types.EntityID]struct{}
}

// NewView creates an empty view over the given component types. Duplicate
// type ids are collapsed.
func NewView(componentTypes ...types.ComponentTypeID) *View {
	typeSet := make(map[types.ComponentTypeID]struct{}, len(componentTypes))
	for _, id := range componentTypes {
		typeSet[id] = struct{}{}
	}
	sorted := make([]types.ComponentTypeID, 0, len(typeSet))
	for id := range typeSet {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &View{
		componentTypes: sorted,
		typeSet:        typeSet,
		typeFilter:     filter.Contains(sorted...),
		entities:       make(map[types.EntityID]struct{}),
		newEntities:    make(map[types.EntityID]struct{}),
		toAdd:          make(map[types.EntityID]bool),
		toRemove:       make(map[types.EntityID]struct{}),
	}
}

// ComponentTypes returns the view's type ids in ascending order. The slice is
// shared; callers must not modify it.
func (v *View) ComponentTypes() []types.ComponentTypeID {
	return v.componentTypes
}

// Reset clears membership and all pending bookkeeping.
func (v *View) Reset() {
	v.entities = make(map[types.EntityID]struct{})
	v.newEntities = make(map[types.EntityID]struct{})
	v.toAdd = make(map[types.EntityID]bool)
	v.toRemove = make(map[types.EntityID]struct{})
}

// MarkEntityToAdd queues the entity for inclusion, remembering whether it is
// newly created.
func (v *View) MarkEntityToAdd(e types.EntityID, isNew bool) {
	v.toAdd[e] = isNew
}

// MarkEntityToRemove queues the entity for exclusion if the view currently
// tracks it.
func (v *View) MarkEntityToRemove(e types.EntityID) {
	_, isMember := v.entities[e]
	_, isPending := v.toAdd[e]
	if isMember || isPending {
		v.toRemove[e] = struct{}{}
	}
}

// RemoveEntity drops the entity from membership and every pending list.
func (v *View) RemoveEntity(e types.EntityID) {
	delete(v.entities, e)
	delete(v.newEntities, e)
	delete(v.toAdd, e)
	delete(v.toRemove, e)
}

// NotifyComponentAddition re-queues the entity when a component of a relevant
// type reappears on it. A pending exclusion for the entity is cancelled since
// the missing component is back.
func (v *View) NotifyComponentAddition(e types.EntityID, isNew bool, typeID types.ComponentTypeID) {
	if _, relevant := v.typeSet[typeID]; !relevant {
		return
	}
	delete(v.toRemove, e)
	v.toAdd[e] = isNew
}

// NotifyComponentRemoval queues the entity for exclusion when a component of
// a relevant type is removed from it.
func (v *View) NotifyComponentRemoval(e types.EntityID, typeID types.ComponentTypeID) {
	if _, relevant := v.typeSet[typeID]; !relevant {
		return
	}
	_, isMember := v.entities[e]
	_, isPending := v.toAdd[e]
	if isMember || isPending {
		delete(v.toAdd, e)
		v.toRemove[e] = struct{}{}
	}
}

// ResetNewEntityState forgets which member entities were newly created.
func (v *View) ResetNewEntityState() {
	v.newEntities = make(map[types.EntityID]struct{})
}

// HasEntity reports whether the entity is a current member. Pending
// additions do not count until the view is updated.
func (v *View) HasEntity(e types.EntityID) bool {
	_, ok := v.entities[e]
	return ok
}

// Entities returns the current members. The returned slice is owned by the
// caller.
func (v *View) Entities() []types.EntityID {
	return setToSlice(v.entities)
}

// NewEntities returns the members that are newly created since the last
// ResetNewEntityState.
func (v *View) NewEntities() []types.EntityID {
	return setToSlice(v.newEntities)
}

// MarkedForRemoval returns the members queued for exclusion.
func (v *View) MarkedForRemoval() []types.EntityID {
	return setToSlice(v.toRemove)
}

// update folds pending additions and removals into the membership. Additions
// are re-checked against the match predicate since the entity's component set
// may have changed after it was queued.
func (v *View) update(matches func(types.EntityID, filter.TypeFilter) bool) {
	for e, isNew := range v.toAdd {
		if !matches(e, v.typeFilter) {
			continue
		}
		v.entities[e] = struct{}{}
		if isNew {
			v.newEntities[e] = struct{}{}
		}
	}
	v.toAdd = make(map[types.EntityID]bool)

	for e := range v.toRemove {
		delete(v.entities, e)
		delete(v.newEntities, e)
	}
	v.toRemove = make(map[types.EntityID]struct{})
}

func setToSlice(set map[types.EntityID]struct{}) []types.EntityID {
	if len(set) == 0 {
		return nil
	}
	out := make([]types.EntityID, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// sameTypeSet reports whether the view is over exactly the given types.
func (v *View) sameTypeSet(componentTypes []types.ComponentTypeID) bool {
	seen := make(map[types.ComponentTypeID]struct{}, len(componentTypes))
	for _, id := range componentTypes {
		seen[id] = struct{}{}
	}
	if len(seen) != len(v.typeSet) {
		return false
	}
	for id := range seen {
		if _, ok := v.typeSet[id]; !ok {
			return false
		}
	}
	return true
}
