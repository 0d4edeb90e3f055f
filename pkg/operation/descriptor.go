// Package operation holds the typed operation model and the registry
// that resolves (kind, entity, verb) triples to operation descriptors.
//
// There is no runtime type scanning: feature modules implement Source
// and hand their descriptors to the registry explicitly at build time.
package operation

import (
	"context"
	"strings"

	"github.com/actionmesh/gateway/pkg/action"
)

// FieldType is the declared type of a shape field.
type FieldType string

// Field types understood by the binder's route-parameter conversion.
const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldObject FieldType = "object"
)

// Field describes one field of an input or output shape.
type Field struct {
	Name     string      `json:"name"`
	Type     FieldType   `json:"type"`
	Required bool        `json:"required,omitempty"`
	Default  interface{} `json:"default,omitempty"`
}

// Shape is the structural descriptor of an operation's input or
// output. Immutable shapes follow the value-object pattern and are
// reconstructed through a field-merge builder instead of in-place
// population.
type Shape struct {
	Name      string  `json:"name"`
	Fields    []Field `json:"fields,omitempty"`
	Immutable bool    `json:"immutable,omitempty"`
}

// FieldNamed returns the shape field matching name case-insensitively.
func (s Shape) FieldNamed(name string) (Field, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// BindFunc converts a raw payload plus route parameters into a typed
// input instance. Supplied per operation at registration time.
type BindFunc func(payload []byte, route map[string]string) (interface{}, error)

// HandleFunc executes the operation against its typed input. This is
// the handler-execution substrate hook; the dispatch pipeline's only
// suspension point.
type HandleFunc func(ctx context.Context, input interface{}) (interface{}, error)

// Descriptor is the registered metadata for one invocable operation.
// Within one registry build, (Kind, Entity, Verb) is unique.
type Descriptor struct {
	// Name is the conventional identifier, e.g. "GetAllAuthorsQuery".
	// Required; the kind suffix (Query/Command) determines Kind when
	// Kind is unset.
	Name string

	Kind   action.Kind
	Entity string
	Verb   string

	// Description is an explicit per-operation override for the
	// description engine. Optional.
	Description string

	Input  Shape
	Output *Shape

	// NewInput constructs a zero-value input instance. Used by the
	// binder for zero-argument construction and payload decoding.
	NewInput func() interface{}

	// Bind overrides the default binding behavior, typically via
	// binder.Fields for immutable value shapes. Optional.
	Bind BindFunc

	// Handle executes the operation. Optional on descriptors used only
	// for cataloging/description.
	Handle HandleFunc
}

// Key returns the normalized (kind, entity, verb) index key.
func (d *Descriptor) Key() string {
	return ResolutionKey(d.Kind, d.Entity, d.Verb)
}

// ResolutionKey normalizes a (kind, entity, verb) triple into the
// registry index key. Lookup is case-insensitive.
func ResolutionKey(kind action.Kind, entity, verb string) string {
	return strings.ToLower(string(kind)) + "|" + strings.ToLower(entity) + "|" + strings.ToLower(verb)
}

// Source is an operation-source module: a feature package exposing its
// operation descriptors for registry builds.
type Source interface {
	// Name identifies the module in logs.
	Name() string
	// Operations returns the module's operation descriptors.
	Operations() []Descriptor
}

// StaticSource is a Source over a fixed descriptor slice.
type StaticSource struct {
	ModuleName  string
	Descriptors []Descriptor
}

// Name returns the module name.
func (s *StaticSource) Name() string { return s.ModuleName }

// Operations returns the descriptors.
func (s *StaticSource) Operations() []Descriptor { return s.Descriptors }
