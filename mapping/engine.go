/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
)

// Engine converts persisted Go values to documents and back.
// An Engine is safe for concurrent use.
type Engine struct {
	types  *xsync.MapOf[reflect.Type, *TypeInfo]
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for skipped fields and decode failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine with an empty descriptor cache.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		types:  xsync.NewMapOf[reflect.Type, *TypeInfo](),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Describe returns the descriptor of a persisted struct type, or of the struct
// a pointer type points to. Descriptors are built on first use and cached.
func (e *Engine) Describe(t reflect.Type) (*TypeInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", errors.ErrUnsupportedType)
	}
	t = derefType(t)
	if ti, ok := e.types.Load(t); ok {
		return ti, nil
	}
	if t.Kind() != reflect.Struct || !IsPersisted(t) {
		return nil, fmt.Errorf("%w: %s declares no %s fields", errors.ErrUnsupportedType, t, TagName)
	}

	ti, err := e.describe(t)
	if err != nil {
		return nil, err
	}
	ti, _ = e.types.LoadOrStore(t, ti)
	return ti, nil
}

// DescribeValue returns the descriptor for the dynamic type of v.
func (e *Engine) DescribeValue(v any) (*TypeInfo, error) {
	return e.Describe(reflect.TypeOf(v))
}

// Encode converts a persisted struct (or pointer to one) into a new Document.
func (e *Engine) Encode(v any) (*document.Document, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.NewValidationError("", "cannot encode a nil pointer")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, errors.NewValidationError("", "cannot encode a nil value")
	}
	ti, err := e.Describe(rv.Type())
	if err != nil {
		return nil, err
	}
	return e.encodeStruct(rv, ti)
}

func (e *Engine) encodeStruct(rv reflect.Value, ti *TypeInfo) (*document.Document, error) {
	doc := &document.Document{}
	for i := range ti.Fields {
		f := &ti.Fields[i]
		fv, ok := fieldByIndex(rv, f.Index)
		if !ok {
			// promoted through a nil embedded pointer
			continue
		}
		val, err := e.encodeField(fv, f)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", ti.Name(), f.GoName, err)
		}
		doc.Set(f.Name, val)
	}
	return doc, nil
}

func (e *Engine) encodeField(fv reflect.Value, f *Field) (any, error) {
	switch f.Kind {
	case KindNested:
		if f.ElemPtr {
			if fv.IsNil() {
				return nil, nil
			}
			fv = fv.Elem()
		}
		return e.encodeNested(fv, f.Elem)

	case KindArray, KindCollection:
		if fv.Kind() == reflect.Slice && fv.IsNil() {
			return nil, nil
		}
		out := make([]any, fv.Len())
		for i := range out {
			ev := fv.Index(i)
			if f.ElemPtr {
				if ev.IsNil() {
					continue
				}
				ev = ev.Elem()
			}
			sub, err := e.encodeNested(ev, f.Elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = sub
		}
		return out, nil

	case KindMap:
		if fv.IsNil() {
			return nil, nil
		}
		keys := make([]string, 0, fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().String())
		}
		sort.Strings(keys)

		out := &document.Document{}
		for _, k := range keys {
			ev := fv.MapIndex(reflect.ValueOf(k).Convert(fv.Type().Key()))
			if f.ElemPtr {
				if ev.IsNil() {
					out.Set(k, nil)
					continue
				}
				ev = ev.Elem()
			}
			sub, err := e.encodeNested(ev, f.Elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out.Set(k, sub)
		}
		return out, nil
	}
	return encodePrimitive(fv), nil
}

func (e *Engine) encodeNested(rv reflect.Value, t reflect.Type) (*document.Document, error) {
	ti, err := e.Describe(t)
	if err != nil {
		return nil, err
	}
	return e.encodeStruct(rv, ti)
}

// encodePrimitive copies a primitive value. Pointers are dereferenced and
// slices are copied so the document does not alias the source value.
func encodePrimitive(fv reflect.Value) any {
	switch fv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if fv.IsNil() {
			return nil
		}
		if fv.Kind() == reflect.Interface {
			return fv.Interface()
		}
		return encodePrimitive(fv.Elem())
	case reflect.Slice:
		if fv.IsNil() {
			return nil
		}
		cp := reflect.MakeSlice(fv.Type(), fv.Len(), fv.Len())
		reflect.Copy(cp, fv)
		return cp.Interface()
	case reflect.Map:
		if fv.IsNil() {
			return nil
		}
		cp := reflect.MakeMapWithSize(fv.Type(), fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface()
	}
	return fv.Interface()
}

// fieldByIndex walks an index path for reading. ok is false when the path
// crosses a nil embedded pointer.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// fieldForSet walks an index path for writing, allocating nil embedded pointers.
func fieldForSet(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot allocate embedded %s", v.Type().Elem())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	if !v.CanSet() {
		return reflect.Value{}, fmt.Errorf("field is not settable")
	}
	return v, nil
}

// IsUnset reports whether a document value counts as absent for index
// matching: nil, or a nil pointer, slice, map or interface.
func IsUnset(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
