/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"reflect"

	"github.com/suparena/modelsync/errors"
)

// IndexValue returns the index field of v's type and the field's current
// value in document form. It fails with an *errors.IndexError wrapping
// errors.ErrNoIndex when the type has no index field, or
// errors.ErrNoIndexValue when the value is unset (see IsUnset). Zero scalars
// count as set.
func (e *Engine) IndexValue(v any) (Field, any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Field{}, nil, errors.NewValidationError("", "cannot read the index of a nil pointer")
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return Field{}, nil, errors.NewValidationError("", "cannot read the index of a nil value")
	}

	ti, err := e.Describe(rv.Type())
	if err != nil {
		return Field{}, nil, err
	}
	f, ok := ti.IndexField()
	if !ok {
		return Field{}, nil, errors.NewIndexError(ti.Name(), errors.ErrNoIndex)
	}

	fv, ok := fieldByIndex(rv, f.Index)
	if !ok {
		return f, nil, errors.NewIndexError(ti.Name(), errors.ErrNoIndexValue)
	}
	val, err := e.encodeField(fv, &f)
	if err != nil {
		return f, nil, err
	}
	if IsUnset(val) {
		return f, nil, errors.NewIndexError(ti.Name(), errors.ErrNoIndexValue)
	}
	return f, val, nil
}
