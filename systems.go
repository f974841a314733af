package archon

import (
	"fmt"
	"reflect"
)

// ServiceTable is a name-indexed table of singleton services with
// invocable methods, built directly on the generic SimpleCache[T]:
// FactoryNewCache already provides the exact name→index→item shape a
// service registry needs, so ServiceTable is a thin reflection layer
// on top rather than a new storage structure.
type ServiceTable struct {
	cache Cache[any]
}

// NewServiceTable creates an empty table with room for cap services.
func NewServiceTable(cap int) *ServiceTable {
	return &ServiceTable{cache: FactoryNewCache[any](cap)}
}

// Register adds svc under name, failing if the table is full or the
// name is already taken.
func (t *ServiceTable) Register(name string, svc any) error {
	if _, ok := t.cache.GetIndex(name); ok {
		return DuplicateNameError{Name: name}
	}
	_, err := t.cache.Register(name, svc)
	return err
}

// Lookup returns the service registered under name.
func (t *ServiceTable) Lookup(name string) (any, bool) {
	idx, ok := t.cache.GetIndex(name)
	if !ok {
		return nil, false
	}
	return *t.cache.GetItem(idx), true
}

// Invoke calls method on the service registered under name via
// reflection, returning its first return value (nil if it has none).
// A non-nil error returned as the method's last value is surfaced as
// Invoke's own error.
func (t *ServiceTable) Invoke(name, method string, args ...any) (any, error) {
	svc, ok := t.Lookup(name)
	if !ok {
		return nil, UnknownComponentTypeError{Name: name}
	}

	v := reflect.ValueOf(svc)
	m := v.MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("archon: service %q has no method %q", name, method)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}

	out := m.Call(in)
	if len(out) == 0 {
		return nil, nil
	}

	errType := reflect.TypeOf((*error)(nil)).Elem()
	if last := out[len(out)-1]; last.Kind() == reflect.Interface && last.Type() == errType && !last.IsNil() {
		return nil, last.Interface().(error)
	}

	return out[0].Interface(), nil
}
