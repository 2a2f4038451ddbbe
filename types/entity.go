package types

import "math"

// EntityID is the unique identifier of a simulated object. IDs are allocated
// by the state manager from a monotonically increasing counter and are never
// reused within the lifetime of a single manager.
type EntityID uint64

const (
	// NullEntity is the id of a non-existent entity.
	NullEntity EntityID = 0

	// MaxEntity is the largest allocatable entity id. The allocator refuses
	// to create an entity once the counter reaches it.
	MaxEntity EntityID = math.MaxUint64
)
