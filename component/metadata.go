package component

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/simforge/simstate/types"
)

// Metadata describes one registered component type: how to construct a fresh
// payload, its name, and the JSON schema captured at registration time.
type Metadata interface {
	// ID returns the type id the metadata was registered under.
	ID() types.ComponentTypeID
	// Name returns the component type name.
	Name() string
	// New returns a fresh payload holding the default value.
	New() Component
	// Schema returns the JSON schema of the payload captured at
	// registration.
	Schema() []byte
}

type metadata[T any] struct {
	id         types.ComponentTypeID
	name       string
	defaultVal T
	schema     []byte
}

func (m *metadata[T]) ID() types.ComponentTypeID {
	return m.id
}

func (m *metadata[T]) Name() string {
	return m.name
}

func (m *metadata[T]) String() string {
	return m.name
}

func (m *metadata[T]) New() Component {
	return &Typed[T]{id: m.id, Value: m.defaultVal}
}

func (m *metadata[T]) Schema() []byte {
	return m.schema
}

func newMetadata[T any](id types.ComponentTypeID, name string) (*metadata[T], error) {
	var zero T
	if name == "" {
		name = reflect.TypeOf(zero).Name()
	}
	schema, err := schemaOf(zero)
	if err != nil {
		return nil, err
	}
	return &metadata[T]{id: id, name: name, schema: schema}, nil
}

func schemaOf(v any) ([]byte, error) {
	bz, err := jsonschema.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

// schemaMatches reports whether two captured schemas describe the same
// payload shape.
func schemaMatches(a, b []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(a, b)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

// Option augments a registration.
type Option[T any] func(*metadata[T])

// WithDefault sets the value a freshly constructed payload starts with.
func WithDefault[T any](defaultVal T) Option[T] {
	return func(m *metadata[T]) {
		m.defaultVal = defaultVal
	}
}

// WithName overrides the name derived from the payload's Go type.
func WithName[T any](name string) Option[T] {
	return func(m *metadata[T]) {
		m.name = name
	}
}
