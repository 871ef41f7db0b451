package pyrolite

import "reflect"

// A PicklerRegistry maps host types to user-supplied picklers. A registered
// pickler always beats the built-in reflection rules for its type.
//
// Lookup is exact type first, then a walk over registered interface types in
// registration order; the first interface the queried type implements wins.
//
// A registry is expected to be populated during startup and treated as
// read-only afterwards: concurrent lookups need no locking, concurrent
// registration does.
type PicklerRegistry struct {
	exact map[reflect.Type]ObjectPickler
	order []reflect.Type
}

// NewPicklerRegistry returns an empty registry.
func NewPicklerRegistry() *PicklerRegistry {
	return &PicklerRegistry{exact: make(map[reflect.Type]ObjectPickler)}
}

// Register associates p with the type of prototype. Pass a value of the
// target type, a pointer to one, or a pointer to a nil interface to
// register an interface:
//
//	reg.Register(MyPoint{}, pickler)
//	reg.Register((*big.Int)(nil), pickler)
//	reg.Register((*encoding.TextMarshaler)(nil), pickler)
//
// Pointer prototypes register the pointed-to type: the encoder follows
// pointers before it consults the registry.
//
// Registering a type again replaces the previous pickler and keeps the
// type's original position in the interface walk.
func (r *PicklerRegistry) Register(prototype interface{}, p ObjectPickler) {
	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := r.exact[t]; !ok {
		r.order = append(r.order, t)
	}
	r.exact[t] = p
}

// RegisterFunc is Register for a plain function.
func (r *PicklerRegistry) RegisterFunc(prototype interface{}, fn ObjectPicklerFunc) {
	r.Register(prototype, fn)
}

// Lookup returns the pickler handling t, if any.
func (r *PicklerRegistry) Lookup(t reflect.Type) (ObjectPickler, bool) {
	if p, ok := r.exact[t]; ok {
		return p, true
	}
	for _, rt := range r.order {
		if rt.Kind() == reflect.Interface && t.Implements(rt) {
			return r.exact[rt], true
		}
	}
	return nil, false
}

// DefaultRegistry is the registry Encoders use unless EncoderConfig names
// another one.
var DefaultRegistry = NewPicklerRegistry()

// Register adds a pickler to DefaultRegistry.
func Register(prototype interface{}, p ObjectPickler) {
	DefaultRegistry.Register(prototype, p)
}

// RegisterFunc adds a pickler function to DefaultRegistry.
func RegisterFunc(prototype interface{}, fn ObjectPicklerFunc) {
	DefaultRegistry.RegisterFunc(prototype, fn)
}
