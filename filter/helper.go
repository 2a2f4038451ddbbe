package filter

import (
	"github.com/simforge/simstate/types"
)

// MatchType returns true if the given slice of component types contains the
// given type id.
func MatchType(componentTypes []types.ComponentTypeID, id types.ComponentTypeID) bool {
	for _, c := range componentTypes {
		if c == id {
			return true
		}
	}
	return false
}
