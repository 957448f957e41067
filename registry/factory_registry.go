/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// Factory returns a new instance of a persisted type as a pointer.
type Factory func() any

// factoryRegistry maps Go struct types to the factory used to instantiate them
// during decoding.
var (
	factoryRegistry = make(map[reflect.Type]Factory)
	mu              sync.RWMutex
)

// RegisterFactory associates type T with a constructor. The engine calls it
// instead of allocating a zero value whenever it needs a fresh T.
func RegisterFactory[T any](fn func() *T) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	mu.Lock()
	defer mu.Unlock()
	factoryRegistry[t] = func() any { return fn() }
}

// GetFactory retrieves the factory registered for T, if any.
func GetFactory[T any]() (Factory, bool) {
	return FactoryFor(reflect.TypeOf((*T)(nil)).Elem())
}

// FactoryFor retrieves the factory registered for struct type t, if any.
func FactoryFor(t reflect.Type) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factoryRegistry[t]
	return f, ok
}

// UnregisterFactory removes the factory for T.
func UnregisterFactory[T any]() {
	t := reflect.TypeOf((*T)(nil)).Elem()

	mu.Lock()
	defer mu.Unlock()
	delete(factoryRegistry, t)
}
