// Package filter provides composable predicates over the set of component
// types attached to an entity.
package filter

import (
	"github.com/simforge/simstate/types"
)

// TypeFilter selects entities based on their component type set.
type TypeFilter interface {
	// Matches returns true if an entity holding exactly the given component
	// types passes the filter.
	Matches(componentTypes []types.ComponentTypeID) bool
}
