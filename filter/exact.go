package filter

import (
	"github.com/simforge/simstate/types"
)

type exact struct {
	componentTypes []types.ComponentTypeID
}

// Exact matches entities whose component type set is exactly the given set.
func Exact(componentTypes ...types.ComponentTypeID) TypeFilter {
	return &exact{componentTypes: componentTypes}
}

func (f *exact) Matches(componentTypes []types.ComponentTypeID) bool {
	if len(f.componentTypes) != len(componentTypes) {
		return false
	}
	for _, id := range f.componentTypes {
		if !MatchType(componentTypes, id) {
			return false
		}
	}
	return true
}
