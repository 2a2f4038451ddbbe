package component

import (
	"bytes"

	"github.com/simforge/simstate/codec"
	"github.com/simforge/simstate/types"
)

type (
	// Component is an owned, typed payload attached to an entity. The state
	// manager owns payloads exclusively; pointers handed to callers are
	// borrows whose validity ends at the next structural mutation of the
	// same (entity, type) pair.
	Component interface {
		// TypeID returns the registered type id of this payload.
		TypeID() types.ComponentTypeID
		// Serialize returns the wire bytes of the payload.
		Serialize() ([]byte, error)
		// Deserialize replaces the payload value with the decoded bytes.
		Deserialize([]byte) error
	}

	// Comparable is an optional capability for payloads that support
	// equality by value.
	Comparable interface {
		Equal(Component) bool
	}
)

// Typed is the generic payload carrier used by components registered through
// Register. The wrapped value is what goes over the wire.
type Typed[T any] struct {
	id    types.ComponentTypeID
	Value T
}

// NewValue returns a payload of the metadata's type holding the given value.
func NewValue[T any](meta Metadata, value T) *Typed[T] {
	return &Typed[T]{id: meta.ID(), Value: value}
}

func (c *Typed[T]) TypeID() types.ComponentTypeID {
	return c.id
}

func (c *Typed[T]) Serialize() ([]byte, error) {
	return codec.Encode(c.Value)
}

func (c *Typed[T]) Deserialize(bz []byte) error {
	return codec.DecodeInto(bz, &c.Value)
}

// Equal compares payloads by their serialized form.
func (c *Typed[T]) Equal(other Component) bool {
	if other == nil || other.TypeID() != c.id {
		return false
	}
	a, err := c.Serialize()
	if err != nil {
		return false
	}
	b, err := other.Serialize()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
