/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"reflect"

	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/registry"
)

// Decode applies doc onto target, which must be a non-nil pointer to a
// persisted struct. Keys missing from doc leave fields untouched. Fields that
// fail to decode are skipped and reported together in a *errors.DecodeError;
// every other field is still assigned.
func (e *Engine) Decode(doc *document.Document, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NewValidationError("", fmt.Sprintf("decode target must be a non-nil pointer, got %T", target))
	}
	ti, err := e.Describe(rv.Type())
	if err != nil {
		return err
	}

	de := &errors.DecodeError{Type: ti.Name()}
	e.decodeStruct(doc, rv.Elem(), ti, de)
	if err := de.OrNil(); err != nil {
		for _, fe := range de.Fields {
			e.logger.Warn("field decode failed", "type", ti.Name(), "field", fe.Path, "error", fe.Cause)
		}
		return err
	}
	return nil
}

// New instantiates t (a persisted struct type or pointer to one) and decodes
// doc into it. It returns a pointer to the new value. On field errors the
// partially decoded value is returned together with the *errors.DecodeError.
func (e *Engine) New(t reflect.Type, doc *document.Document) (any, error) {
	ti, err := e.Describe(t)
	if err != nil {
		return nil, err
	}
	ptr := e.instantiate(ti.Type)
	return ptr.Interface(), e.Decode(doc, ptr.Interface())
}

// DecodeNew instantiates a T and decodes doc into it.
func DecodeNew[T any](e *Engine, doc *document.Document) (*T, error) {
	v, err := e.New(reflect.TypeOf((*T)(nil)).Elem(), doc)
	if v == nil {
		return nil, err
	}
	return v.(*T), err
}

// instantiate returns a pointer to a new t, built by the registered factory
// when there is one.
func (e *Engine) instantiate(t reflect.Type) reflect.Value {
	if factory, ok := registry.FactoryFor(t); ok {
		v := reflect.ValueOf(factory())
		if v.IsValid() && v.Type() == reflect.PointerTo(t) && !v.IsNil() {
			return v
		}
		e.logger.Warn("factory returned unusable value, using zero value", "type", t.String())
	}
	return reflect.New(t)
}

func (e *Engine) decodeStruct(doc *document.Document, sv reflect.Value, ti *TypeInfo, de *errors.DecodeError) {
	for i := range ti.Fields {
		f := &ti.Fields[i]
		raw, ok := doc.Get(f.Name)
		if !ok {
			continue
		}
		fv, err := fieldForSet(sv, f.Index)
		if err != nil {
			de.Add(f.Name, err)
			continue
		}
		if err := e.decodeField(raw, fv, f, f.Name, de); err != nil {
			de.Add(f.Name, err)
		}
	}
}

// decodeField assigns raw to fv. Failures of nested values are added to de
// under path; a returned error concerns the field itself.
func (e *Engine) decodeField(raw any, fv reflect.Value, f *Field, path string, de *errors.DecodeError) error {
	switch f.Kind {
	case KindNested:
		if raw == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		ptr, err := e.decodeNested(raw, f.Elem, path, de)
		if err != nil {
			return err
		}
		if f.ElemPtr {
			fv.Set(ptr)
		} else {
			fv.Set(ptr.Elem())
		}
		return nil

	case KindCollection, KindArray:
		if raw == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		seq, ok := sequence(raw)
		if !ok {
			return fmt.Errorf("expected a sequence of documents, got %T", raw)
		}
		n := seq.Len()

		var out reflect.Value
		if f.Kind == KindArray {
			if n > fv.Len() {
				return fmt.Errorf("sequence of %d elements exceeds array length %d", n, fv.Len())
			}
			out = reflect.New(fv.Type()).Elem()
		} else {
			out = reflect.MakeSlice(fv.Type(), n, n)
		}

		for i := 0; i < n; i++ {
			elem := seq.Index(i).Interface()
			if elem == nil {
				continue
			}
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			ptr, err := e.decodeNested(elem, f.Elem, elemPath, de)
			if err != nil {
				de.Add(elemPath, err)
				continue
			}
			if f.ElemPtr {
				out.Index(i).Set(ptr)
			} else {
				out.Index(i).Set(ptr.Elem())
			}
		}
		fv.Set(out)
		return nil

	case KindMap:
		if raw == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		var elems []document.Element
		switch m := raw.(type) {
		case *document.Document:
			elems = m.Elements()
		case map[string]any:
			elems = document.FromMap(m).Elements()
		default:
			return fmt.Errorf("expected a document of documents, got %T", raw)
		}

		out := reflect.MakeMapWithSize(fv.Type(), len(elems))
		for _, el := range elems {
			key := reflect.ValueOf(el.Key).Convert(fv.Type().Key())
			if el.Value == nil {
				out.SetMapIndex(key, reflect.Zero(fv.Type().Elem()))
				continue
			}
			elemPath := path + "." + el.Key
			ptr, err := e.decodeNested(el.Value, f.Elem, elemPath, de)
			if err != nil {
				de.Add(elemPath, err)
				continue
			}
			if f.ElemPtr {
				out.SetMapIndex(key, ptr)
			} else {
				out.SetMapIndex(key, ptr.Elem())
			}
		}
		fv.Set(out)
		return nil
	}

	v, err := convert(raw, fv.Type())
	if err != nil {
		return err
	}
	fv.Set(v)
	return nil
}

// decodeNested builds a fresh t from a nested document value.
func (e *Engine) decodeNested(raw any, t reflect.Type, path string, de *errors.DecodeError) (reflect.Value, error) {
	var sub *document.Document
	switch rv := raw.(type) {
	case *document.Document:
		sub = rv
	case map[string]any:
		sub = document.FromMap(rv)
	default:
		return reflect.Value{}, fmt.Errorf("expected a document, got %T", raw)
	}

	ti, err := e.Describe(t)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := e.instantiate(t)
	nested := &errors.DecodeError{Type: ti.Name()}
	e.decodeStruct(sub, ptr.Elem(), ti, nested)
	de.Merge(path, nested)
	return ptr, nil
}

// sequence returns raw as a reflect slice or array value. Byte slices are not
// sequences of elements.
func sequence(raw any) (reflect.Value, bool) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return reflect.Value{}, false
		}
		return rv, true
	case reflect.Array:
		return rv, true
	}
	return reflect.Value{}, false
}
