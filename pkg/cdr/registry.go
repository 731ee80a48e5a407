package cdr

import (
	"reflect"
	"sync"
)

// TypeSupport is the stable handle a registered type descriptor is
// addressed by: topic creation, dynamic-value encode/decode and key
// hashing all resolve through it.
type TypeSupport struct {
	Name   string
	Type   *Type
	Handle int
}

// Registry holds the process-wide set of registered type descriptors.
// Register is idempotent: registering the same descriptor under the same
// name returns the original TypeSupport handle, while a
// structurally different descriptor under an
// already-bound name is refused.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*TypeSupport
	next   int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*TypeSupport)}
}

// Register binds t under t.Name and returns its TypeSupport. A second call
// with an equal descriptor returns the same handle; a conflicting
// redefinition returns ErrTypeRedefined.
func (reg *Registry) Register(t *Type) (*TypeSupport, error) {
	if t == nil || t.Name == "" {
		return nil, ErrValueMismatch("register: nil or unnamed type")
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if ts, ok := reg.byName[t.Name]; ok {
		if !reflect.DeepEqual(ts.Type, t) {
			return nil, ErrTypeRedefined(t.Name)
		}
		return ts, nil
	}
	reg.next++
	ts := &TypeSupport{Name: t.Name, Type: t, Handle: reg.next}
	reg.byName[t.Name] = ts
	return ts, nil
}

// Lookup returns the TypeSupport bound to name, if any.
func (reg *Registry) Lookup(name string) (*TypeSupport, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	ts, ok := reg.byName[name]
	return ts, ok
}

// Resolve follows a TCTypeRef to its registered target; any other type is
// returned unchanged.
func (reg *Registry) Resolve(t *Type) (*Type, error) {
	if t == nil || t.Code != TCTypeRef {
		return t, nil
	}
	ts, ok := reg.Lookup(t.Name)
	if !ok {
		return nil, ErrUnknownTypeRef(t.Name)
	}
	return ts.Type, nil
}
