/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/suparena/modelsync/errors"
)

// TagName is the struct tag read by the engine.
const TagName = "dbsync"

// Kind classifies how a field is marshaled.
type Kind int

const (
	// KindPrimitive values are copied verbatim: scalars, opaque structs and
	// sequences of those.
	KindPrimitive Kind = iota
	// KindNested is a single persisted struct, by value or pointer.
	KindNested
	// KindArray is a fixed-size array of persisted structs.
	KindArray
	// KindCollection is a slice of persisted structs.
	KindCollection
	// KindMap is a string-keyed map of persisted structs.
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindNested:
		return "nested"
	case KindArray:
		return "array"
	case KindCollection:
		return "collection"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Field describes one persisted field.
type Field struct {
	// Name is the document key: the tag alias, or the Go field name.
	Name string
	// GoName is the Go field name.
	GoName string
	// Index is the reflect index path, reaching through embedded structs.
	Index []int
	Kind  Kind
	// Type is the declared Go type of the field.
	Type reflect.Type
	// Elem is the persisted struct type for nested, array, collection and map fields.
	Elem reflect.Type
	// ElemPtr is set when the nested value or sequence element is a pointer.
	ElemPtr bool
	IsIndex bool
}

// TypeInfo is the cached descriptor of a persisted type. It is immutable once built.
type TypeInfo struct {
	Type   reflect.Type
	Fields []Field

	byName map[string]int
	index  int
}

// Name returns the qualified Go name of the type.
func (ti *TypeInfo) Name() string {
	return ti.Type.String()
}

// Field returns the descriptor for a document key.
func (ti *TypeInfo) Field(name string) (Field, bool) {
	i, ok := ti.byName[name]
	if !ok {
		return Field{}, false
	}
	return ti.Fields[i], true
}

// IndexField returns the field flagged as index, if the type declares one.
func (ti *TypeInfo) IndexField() (Field, bool) {
	if ti.index < 0 {
		return Field{}, false
	}
	return ti.Fields[ti.index], true
}

// IsPersisted reports whether t (or the struct it points to) declares at least
// one dbsync field, directly or through embedded structs.
func IsPersisted(t reflect.Type) bool {
	return isPersisted(derefType(t), map[reflect.Type]bool{})
}

func isPersisted(t reflect.Type, visiting map[reflect.Type]bool) bool {
	if t.Kind() != reflect.Struct || visiting[t] {
		return false
	}
	visiting[t] = true
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(TagName)
		if ok && tag != "-" {
			return true
		}
		if !ok && sf.Anonymous && isPersisted(derefType(sf.Type), visiting) {
			return true
		}
	}
	return false
}

func derefType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// describe walks t and builds its descriptor. It only classifies referenced
// types, so it never recurses into another descriptor.
func (e *Engine) describe(t reflect.Type) (*TypeInfo, error) {
	ti := &TypeInfo{Type: t, byName: map[string]int{}, index: -1}
	e.collect(ti, t, nil, map[reflect.Type]bool{t: true})

	for i, f := range ti.Fields {
		if !f.IsIndex {
			continue
		}
		if ti.index >= 0 {
			return nil, errors.NewIndexError(t.String(), fmt.Errorf("%w: %s and %s",
				errors.ErrMultipleIndexes, ti.Fields[ti.index].GoName, f.GoName))
		}
		ti.index = i
	}
	return ti, nil
}

// collect appends the tagged fields of t, then those promoted from embedded
// structs. Names already taken by an outer struct shadow embedded ones.
func (e *Engine) collect(ti *TypeInfo, t reflect.Type, prefix []int, visiting map[reflect.Type]bool) {
	var embedded []int

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, tagged := sf.Tag.Lookup(TagName)
		if !tagged {
			if sf.Anonymous && derefType(sf.Type).Kind() == reflect.Struct {
				embedded = append(embedded, i)
			}
			continue
		}
		if tag == "-" {
			continue
		}
		if !sf.IsExported() {
			e.logger.Debug("skipping unexported field", "type", t.String(), "field", sf.Name)
			continue
		}

		name, isIndex := parseTag(tag)
		if name == "" {
			name = sf.Name
		}
		if _, taken := ti.byName[name]; taken {
			continue
		}

		f, ok := classify(sf.Type)
		if !ok {
			e.logger.Debug("skipping non-serializable field", "type", t.String(), "field", sf.Name, "kind", sf.Type.Kind().String())
			continue
		}
		f.Name = name
		f.GoName = sf.Name
		f.Index = appendIndex(prefix, i)
		f.IsIndex = isIndex

		ti.byName[name] = len(ti.Fields)
		ti.Fields = append(ti.Fields, f)
	}

	for _, i := range embedded {
		et := derefType(t.Field(i).Type)
		if visiting[et] {
			continue
		}
		visiting[et] = true
		e.collect(ti, et, appendIndex(prefix, i), visiting)
	}
}

func parseTag(tag string) (string, bool) {
	parts := strings.Split(tag, ",")
	isIndex := false
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "index" {
			isIndex = true
		}
	}
	return strings.TrimSpace(parts[0]), isIndex
}

func appendIndex(prefix []int, i int) []int {
	out := make([]int, len(prefix)+1)
	copy(out, prefix)
	out[len(prefix)] = i
	return out
}

// classify decides how a field type is marshaled. ok is false for kinds that
// cannot be stored.
func classify(t reflect.Type) (Field, bool) {
	f := Field{Type: t}

	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
		f.ElemPtr = true
	}

	switch {
	case base.Kind() == reflect.Struct && IsPersisted(base):
		f.Kind = KindNested
		f.Elem = base
		return f, true

	case !f.ElemPtr && (base.Kind() == reflect.Slice || base.Kind() == reflect.Array):
		et := base.Elem()
		elemPtr := false
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
			elemPtr = true
		}
		if et.Kind() == reflect.Struct && IsPersisted(et) {
			f.Kind = KindCollection
			if base.Kind() == reflect.Array {
				f.Kind = KindArray
			}
			f.Elem = et
			f.ElemPtr = elemPtr
			return f, true
		}

	case !f.ElemPtr && base.Kind() == reflect.Map && base.Key().Kind() == reflect.String:
		et := base.Elem()
		elemPtr := false
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
			elemPtr = true
		}
		if et.Kind() == reflect.Struct && IsPersisted(et) {
			f.Kind = KindMap
			f.Elem = et
			f.ElemPtr = elemPtr
			return f, true
		}
	}

	if !isPrimitive(t, 0) {
		return Field{}, false
	}
	f.Kind = KindPrimitive
	f.ElemPtr = false
	return f, true
}

// isPrimitive reports whether values of t can be copied verbatim.
func isPrimitive(t reflect.Type, depth int) bool {
	if depth > 8 {
		return false
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String, reflect.Interface,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Struct:
		// opaque value such as time.Time
		return !IsPersisted(t)
	case reflect.Pointer:
		return t.Elem().Kind() != reflect.Pointer && isPrimitive(t.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		return isPrimitive(t.Elem(), depth+1)
	case reflect.Map:
		return t.Key().Kind() == reflect.String && isPrimitive(t.Elem(), depth+1)
	}
	return false
}
