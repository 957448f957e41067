/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/modelsync/document"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	dateTimeType = reflect.TypeOf(strfmt.DateTime{})
)

// convert turns a document value into a value assignable to t. Conversions
// never lose information: numbers must fit and be integral when the target
// is an integer.
func convert(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot assign null to %s", t)
	}

	rv := reflect.ValueOf(raw)
	if rv.Type() == t {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Interface:
		if rv.Type().AssignableTo(t) {
			return rv, nil
		}
		return reflect.Value{}, fmt.Errorf("%T does not implement %s", raw, t)

	case reflect.Pointer:
		inner, err := convert(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	if t == timeType || t == dateTimeType {
		return convertTime(raw, t)
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return convertNumber(rv, t)

	case reflect.Bool, reflect.String:
		if rv.Kind() == t.Kind() {
			return rv.Convert(t), nil
		}

	case reflect.Slice, reflect.Array:
		if src, ok := sequence(raw); ok {
			return convertSequence(src, t)
		}
		if rv.Kind() == reflect.Slice && rv.Type().ConvertibleTo(t) && t.Kind() == reflect.Slice {
			// []byte into a named byte slice
			return rv.Convert(t), nil
		}

	case reflect.Map:
		return convertMap(raw, t)

	case reflect.Struct:
		if rv.Kind() == reflect.Struct && rv.Type().ConvertibleTo(t) {
			return rv.Convert(t), nil
		}
	}

	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, t)
}

func convertTime(raw any, t reflect.Type) (reflect.Value, error) {
	var tm time.Time
	switch v := raw.(type) {
	case time.Time:
		tm = v
	case strfmt.DateTime:
		tm = time.Time(v)
	case string:
		dt, err := strfmt.ParseDateTime(v)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("parse time %q: %w", v, err)
		}
		tm = time.Time(dt)
	default:
		return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, t)
	}
	return reflect.ValueOf(tm).Convert(t), nil
}

func convertNumber(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	fail := func() (reflect.Value, error) {
		return reflect.Value{}, fmt.Errorf("%v (%s) does not fit %s", rv.Interface(), rv.Type(), t)
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		switch {
		case isIntKind(rv.Kind()):
			i = rv.Int()
		case isUintKind(rv.Kind()):
			u := rv.Uint()
			if u > math.MaxInt64 {
				return fail()
			}
			i = int64(u)
		case isFloatKind(rv.Kind()):
			f := rv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return fail()
			}
			i = int64(f)
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), t)
		}
		if out.OverflowInt(i) {
			return fail()
		}
		out.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		switch {
		case isIntKind(rv.Kind()):
			i := rv.Int()
			if i < 0 {
				return fail()
			}
			u = uint64(i)
		case isUintKind(rv.Kind()):
			u = rv.Uint()
		case isFloatKind(rv.Kind()):
			f := rv.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return fail()
			}
			u = uint64(f)
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), t)
		}
		if out.OverflowUint(u) {
			return fail()
		}
		out.SetUint(u)

	default:
		var f float64
		switch {
		case isIntKind(rv.Kind()):
			f = float64(rv.Int())
		case isUintKind(rv.Kind()):
			f = float64(rv.Uint())
		case isFloatKind(rv.Kind()):
			f = rv.Float()
		default:
			return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), t)
		}
		if out.OverflowFloat(f) {
			return fail()
		}
		out.SetFloat(f)
	}
	return out, nil
}

func convertSequence(src reflect.Value, t reflect.Type) (reflect.Value, error) {
	n := src.Len()
	var out reflect.Value
	if t.Kind() == reflect.Array {
		if n > t.Len() {
			return reflect.Value{}, fmt.Errorf("sequence of %d elements exceeds array length %d", n, t.Len())
		}
		out = reflect.New(t).Elem()
	} else {
		out = reflect.MakeSlice(t, n, n)
	}
	for i := 0; i < n; i++ {
		v, err := convert(src.Index(i).Interface(), t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

func convertMap(raw any, t reflect.Type) (reflect.Value, error) {
	if t.Key().Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, t)
	}
	var elems []document.Element
	switch v := raw.(type) {
	case *document.Document:
		elems = v.Elements()
	case map[string]any:
		elems = document.FromMap(v).Elements()
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() == reflect.Map && rv.Type().ConvertibleTo(t) {
			return rv.Convert(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, t)
	}

	out := reflect.MakeMapWithSize(t, len(elems))
	for _, e := range elems {
		val := e.Value
		if t.Elem().Kind() != reflect.Interface {
			cv, err := convert(val, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", e.Key, err)
			}
			out.SetMapIndex(reflect.ValueOf(e.Key).Convert(t.Key()), cv)
			continue
		}
		if d, ok := val.(*document.Document); ok {
			val = d.Map()
		}
		if val == nil {
			out.SetMapIndex(reflect.ValueOf(e.Key).Convert(t.Key()), reflect.Zero(t.Elem()))
			continue
		}
		out.SetMapIndex(reflect.ValueOf(e.Key).Convert(t.Key()), reflect.ValueOf(val))
	}
	return out, nil
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
