/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/modelsync/document"
)

// Op names a filter operator. Values follow the MongoDB operator names.
type Op string

const (
	OpAll    Op = ""
	OpEq     Op = "$eq"
	OpNe     Op = "$ne"
	OpGt     Op = "$gt"
	OpGte    Op = "$gte"
	OpLt     Op = "$lt"
	OpLte    Op = "$lte"
	OpIn     Op = "$in"
	OpExists Op = "$exists"
	OpAnd    Op = "$and"
)

// Filter is a predicate over document fields. The zero value matches every document.
type Filter struct {
	Op       Op
	Field    string
	Value    any
	Children []Filter
}

// All matches every document.
func All() Filter { return Filter{} }

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter { return Filter{Op: OpEq, Field: field, Value: value} }

// Ne matches documents whose field is absent or differs from value.
func Ne(field string, value any) Filter { return Filter{Op: OpNe, Field: field, Value: value} }

func Gt(field string, value any) Filter  { return Filter{Op: OpGt, Field: field, Value: value} }
func Gte(field string, value any) Filter { return Filter{Op: OpGte, Field: field, Value: value} }
func Lt(field string, value any) Filter  { return Filter{Op: OpLt, Field: field, Value: value} }
func Lte(field string, value any) Filter { return Filter{Op: OpLte, Field: field, Value: value} }

// In matches documents whose field equals any of values.
func In(field string, values ...any) Filter {
	return Filter{Op: OpIn, Field: field, Value: values}
}

// Exists matches on presence (or absence) of field.
func Exists(field string, present bool) Filter {
	return Filter{Op: OpExists, Field: field, Value: present}
}

// And matches when every child matches. And() with no children matches everything.
func And(filters ...Filter) Filter {
	return Filter{Op: OpAnd, Children: filters}
}

// IsAll reports whether the filter places no constraint.
func (f Filter) IsAll() bool {
	switch f.Op {
	case OpAll:
		return true
	case OpAnd:
		for _, c := range f.Children {
			if !c.IsAll() {
				return false
			}
		}
		return true
	}
	return false
}

// Match evaluates the filter against doc.
func (f Filter) Match(doc *document.Document) bool {
	switch f.Op {
	case OpAll:
		return true
	case OpAnd:
		for _, c := range f.Children {
			if !c.Match(doc) {
				return false
			}
		}
		return true
	}

	v, present := Lookup(doc, f.Field)
	switch f.Op {
	case OpExists:
		want, _ := f.Value.(bool)
		return present == want
	case OpEq:
		return present && document.ValuesEqual(v, f.Value)
	case OpNe:
		return !present || !document.ValuesEqual(v, f.Value)
	case OpIn:
		if !present {
			return false
		}
		for _, candidate := range f.Values() {
			if document.ValuesEqual(v, candidate) {
				return true
			}
		}
		return false
	case OpGt, OpGte, OpLt, OpLte:
		if !present {
			return false
		}
		c, ok := Compare(v, f.Value)
		if !ok {
			return false
		}
		switch f.Op {
		case OpGt:
			return c > 0
		case OpGte:
			return c >= 0
		case OpLt:
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

// Values returns the candidates of an $in filter as a slice.
func (f Filter) Values() []any {
	if vs, ok := f.Value.([]any); ok {
		return vs
	}
	rv := reflect.ValueOf(f.Value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{f.Value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Equalities returns the field/value pairs fixed by top-level Eq conditions.
// Drivers use them to seed a document created by an upsert.
func (f Filter) Equalities() []document.Element {
	switch f.Op {
	case OpEq:
		return []document.Element{{Key: f.Field, Value: f.Value}}
	case OpAnd:
		var out []document.Element
		for _, c := range f.Children {
			out = append(out, c.Equalities()...)
		}
		return out
	}
	return nil
}

// Doc renders the filter in MongoDB query-document form.
func (f Filter) Doc() *document.Document {
	d := &document.Document{}
	switch f.Op {
	case OpAll:
	case OpAnd:
		if f.IsAll() {
			return d
		}
		children := make([]any, 0, len(f.Children))
		for _, c := range f.Children {
			children = append(children, c.Doc())
		}
		d.Set(string(OpAnd), children)
	case OpEq:
		d.Set(f.Field, f.Value)
	case OpIn:
		d.Set(f.Field, document.New(string(OpIn), f.Values()))
	default:
		d.Set(f.Field, document.New(string(f.Op), f.Value))
	}
	return d
}

func (f Filter) String() string {
	return f.Doc().String()
}

// Compare orders two values of a comparable family: numbers, strings or times.
func Compare(a, b any) (int, bool) {
	if _, ok := document.ToFloat(a); ok {
		return document.CompareNumbers(a, b)
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	ta, ok := asTime(a)
	if !ok {
		return 0, false
	}
	tb, ok := asTime(b)
	if !ok {
		return 0, false
	}
	return ta.Compare(tb), true
}

func asTime(v any) (time.Time, bool) {
	switch tv := v.(type) {
	case time.Time:
		return tv, true
	case strfmt.DateTime:
		return time.Time(tv), true
	case *strfmt.DateTime:
		if tv == nil {
			return time.Time{}, false
		}
		return time.Time(*tv), true
	}
	return time.Time{}, false
}

// GoString helps when a filter shows up in test failures.
func (f Filter) GoString() string {
	return fmt.Sprintf("query.Filter%s", f.String())
}
