/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// NamedType is a persisted type registered under a name.
type NamedType struct {
	Name    string
	Type    reflect.Type
	Factory Factory
}

// typeRegistry holds the mapping from a type name (like "user") to its type.
var (
	typeRegistry = make(map[string]NamedType)
	typeMu       sync.RWMutex
)

// RegisterType registers T under name. A nil fn registers T with a zero-value
// constructor. If a type is already registered for the name, it panics to
// prevent accidental overrides.
func RegisterType[T any](name string, fn func() *T) {
	if fn == nil {
		fn = func() *T { return new(T) }
	}
	nt := NamedType{
		Name:    name,
		Type:    reflect.TypeOf((*T)(nil)).Elem(),
		Factory: func() any { return fn() },
	}

	typeMu.Lock()
	defer typeMu.Unlock()
	if _, exists := typeRegistry[name]; exists {
		panic(fmt.Sprintf("type registry: type %q already registered", name))
	}
	typeRegistry[name] = nt
}

// LookupType returns the type registered under name.
// If no type is registered, it returns an error.
func LookupType(name string) (NamedType, error) {
	typeMu.RLock()
	defer typeMu.RUnlock()
	nt, ok := typeRegistry[name]
	if !ok {
		return NamedType{}, fmt.Errorf("type registry: no type registered for name %q", name)
	}
	return nt, nil
}

// TypeNames lists registered names in sorted order.
func TypeNames() []string {
	typeMu.RLock()
	defer typeMu.RUnlock()
	names := make([]string, 0, len(typeRegistry))
	for n := range typeRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
