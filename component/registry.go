package component

import (
	"github.com/rotisserie/eris"

	"github.com/simforge/simstate/types"
)

var (
	ErrInvalidTypeID       = eris.New("component type id must be nonzero")
	ErrSchemaMismatch      = eris.New("component schema does not match prior registration")
	ErrUnknownType         = eris.New("component type is not registered")
	ErrSeedTypeMismatch    = eris.New("seed component type does not match requested type")
	ErrSeedNotSerializable = eris.New("seed component could not be serialized")
)

// Registry is the component factory: it maps a type id to the constructor and
// codec for that component type. A registry is injected into each state
// manager at construction; there is no process-wide singleton.
type Registry struct {
	metadata map[types.ComponentTypeID]Metadata
}

func NewRegistry() *Registry {
	return &Registry{
		metadata: make(map[types.ComponentTypeID]Metadata),
	}
}

// Register adds a component type to the registry. Registering the same id
// twice is allowed as long as the payload schema has not changed, which keeps
// re-initialization in tests cheap while catching genuine collisions.
func Register[T any](r *Registry, id types.ComponentTypeID, opts ...Option[T]) (Metadata, error) {
	if id == types.NullComponentTypeID {
		return nil, ErrInvalidTypeID
	}
	meta, err := newMetadata[T](id, "")
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(meta)
	}
	if prior, ok := r.metadata[id]; ok {
		same, err := schemaMatches(prior.Schema(), meta.Schema())
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, eris.Wrapf(ErrSchemaMismatch, "type id %d", id)
		}
	}
	r.metadata[id] = meta
	return meta, nil
}

// HasType reports whether the given type id is registered.
func (r *Registry) HasType(id types.ComponentTypeID) bool {
	_, ok := r.metadata[id]
	return ok
}

// Metadata returns the metadata registered under the given id, or nil.
func (r *Registry) Metadata(id types.ComponentTypeID) Metadata {
	return r.metadata[id]
}

// New constructs a fresh payload of the given type, or nil if the type is
// unknown.
func (r *Registry) New(id types.ComponentTypeID) Component {
	meta, ok := r.metadata[id]
	if !ok {
		return nil
	}
	return meta.New()
}

// NewFrom constructs a payload of the given type initialized from the seed's
// serialized value. A nil seed yields a default-valued payload.
func (r *Registry) NewFrom(id types.ComponentTypeID, seed Component) (Component, error) {
	meta, ok := r.metadata[id]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownType, "type id %d", id)
	}
	comp := meta.New()
	if seed == nil {
		return comp, nil
	}
	if seed.TypeID() != id {
		return nil, eris.Wrapf(ErrSeedTypeMismatch, "want %d, got %d", id, seed.TypeID())
	}
	bz, err := seed.Serialize()
	if err != nil {
		return nil, eris.Wrap(ErrSeedNotSerializable, err.Error())
	}
	if err := comp.Deserialize(bz); err != nil {
		return nil, err
	}
	return comp, nil
}

// TypeIDs returns the ids of every registered component type.
func (r *Registry) TypeIDs() []types.ComponentTypeID {
	ids := make([]types.ComponentTypeID, 0, len(r.metadata))
	for id := range r.metadata {
		ids = append(ids, id)
	}
	return ids
}
