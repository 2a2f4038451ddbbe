package filter

import (
	"github.com/simforge/simstate/types"
)

type all struct{}

// All matches every entity.
func All() TypeFilter {
	return &all{}
}

func (f *all) Matches(_ []types.ComponentTypeID) bool {
	return true
}
