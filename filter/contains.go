package filter

import (
	"github.com/simforge/simstate/types"
)

type contains struct {
	componentTypes []types.ComponentTypeID
}

// Contains matches entities that have all of the given component types.
func Contains(componentTypes ...types.ComponentTypeID) TypeFilter {
	return &contains{componentTypes: componentTypes}
}

func (f *contains) Matches(componentTypes []types.ComponentTypeID) bool {
	if len(f.componentTypes) > len(componentTypes) {
		return false
	}
	for _, id := range f.componentTypes {
		if !MatchType(componentTypes, id) {
			return false
		}
	}
	return true
}
