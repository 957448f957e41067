/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package document

import (
	"cmp"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Element is a single key/value pair of a Document.
type Element struct {
	Key   string
	Value any
}

// Document is an ordered key/value record exchanged with a store.
// Keys are unique; setting an existing key replaces its value in place.
// The zero value is an empty document ready to use.
type Document struct {
	elems []Element
	index map[string]int
}

// New creates a Document from alternating key/value arguments.
// It panics if a key is not a string or a value is missing.
func New(pairs ...any) *Document {
	if len(pairs)%2 != 0 {
		panic("document: New requires an even number of arguments")
	}
	d := &Document{}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("document: key at position %d is %T, not string", i, pairs[i]))
		}
		d.Set(key, pairs[i+1])
	}
	return d
}

// FromMap builds a Document from a map. Keys are sorted so the result is deterministic.
// Nested map[string]any values become nested documents.
func FromMap(m map[string]any) *Document {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := &Document{}
	for _, k := range keys {
		d.Set(k, fromMapValue(m[k]))
	}
	return d
}

func fromMapValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return FromMap(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = fromMapValue(e)
		}
		return out
	default:
		return v
	}
}

// Set stores value under key and returns the document for chaining.
func (d *Document) Set(key string, value any) *Document {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[key]; ok {
		d.elems[i].Value = value
		return d
	}
	d.index[key] = len(d.elems)
	d.elems = append(d.elems, Element{Key: key, Value: value})
	return d
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.index[key]
	if !ok {
		return nil, false
	}
	return d.elems[i].Value, true
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (d *Document) Delete(key string) bool {
	if d == nil {
		return false
	}
	i, ok := d.index[key]
	if !ok {
		return false
	}
	d.elems = append(d.elems[:i], d.elems[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.elems); j++ {
		d.index[d.elems[j].Key] = j
	}
	return true
}

// Len returns the number of keys.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.elems)
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.elems))
	for i, e := range d.elems {
		keys[i] = e.Key
	}
	return keys
}

// Elements returns a copy of the key/value pairs in insertion order.
func (d *Document) Elements() []Element {
	if d == nil {
		return nil
	}
	out := make([]Element, len(d.elems))
	copy(out, d.elems)
	return out
}

// Map converts the document into a map. Nested documents become nested maps.
func (d *Document) Map() map[string]any {
	if d == nil {
		return nil
	}
	m := make(map[string]any, len(d.elems))
	for _, e := range d.elems {
		m[e.Key] = toMapValue(e.Value)
	}
	return m
}

func toMapValue(v any) any {
	switch tv := v.(type) {
	case *Document:
		return tv.Map()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = toMapValue(e)
		}
		return out
	default:
		return v
	}
}

// Clone returns a deep copy. Nested documents are cloned and every slice value
// is copied into a fresh []any, so the copy shares no mutable state with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		elems: make([]Element, len(d.elems)),
		index: make(map[string]int, len(d.elems)),
	}
	for i, e := range d.elems {
		out.elems[i] = Element{Key: e.Key, Value: cloneValue(e.Value)}
		out.index[e.Key] = i
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case *Document:
		return tv.Clone()
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = cloneValue(e)
		}
		return out
	case []byte:
		out := make([]byte, len(tv))
		copy(out, tv)
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		if rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = cloneValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// Equal reports whether two documents hold the same keys in the same order with
// equal values. Numbers compare by value regardless of their Go kind.
func (d *Document) Equal(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	for i := range d.elems {
		a, b := d.elems[i], other.elems[i]
		if a.Key != b.Key || !ValuesEqual(a.Value, b.Value) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two document values.
func ValuesEqual(a, b any) bool {
	if da, ok := a.(*Document); ok {
		db, ok := b.(*Document)
		return ok && da.Equal(db)
	}
	if c, ok := CompareNumbers(a, b); ok {
		return c == 0
	}
	if _, ok := ToFloat(a); ok {
		return false
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.IsValid() && rb.IsValid() && isSequence(ra) && isSequence(rb) {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !ValuesEqual(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isSequence(v reflect.Value) bool {
	if v.Kind() == reflect.Slice {
		return v.Type().Elem().Kind() != reflect.Uint8
	}
	return v.Kind() == reflect.Array
}

// CompareNumbers orders two numeric values. Integers of any width and
// signedness compare exactly; a float on either side compares as float64.
// It reports false if either value is not a number.
func CompareNumbers(a, b any) (int, bool) {
	ka, kb := numberKind(a), numberKind(b)
	if ka == notNumber || kb == notNumber {
		return 0, false
	}
	if ka == floatNumber || kb == floatNumber {
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		return cmp.Compare(fa, fb), true
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case ka == signedNumber && kb == signedNumber:
		return cmp.Compare(ra.Int(), rb.Int()), true
	case ka == unsignedNumber && kb == unsignedNumber:
		return cmp.Compare(ra.Uint(), rb.Uint()), true
	case ka == signedNumber:
		if ra.Int() < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(ra.Int()), rb.Uint()), true
	default:
		if rb.Int() < 0 {
			return 1, true
		}
		return cmp.Compare(ra.Uint(), uint64(rb.Int())), true
	}
}

type numKind int

const (
	notNumber numKind = iota
	signedNumber
	unsignedNumber
	floatNumber
)

func numberKind(v any) numKind {
	if v == nil {
		return notNumber
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signedNumber
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsignedNumber
	case reflect.Float32, reflect.Float64:
		return floatNumber
	}
	return notNumber
}

// ToFloat converts any Go numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// String renders the document as compact JSON, falling back to a Go representation.
func (d *Document) String() string {
	b, err := d.MarshalJSON()
	if err != nil {
		var sb strings.Builder
		sb.WriteString("{")
		for i, e := range d.Elements() {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %v", e.Key, e.Value)
		}
		sb.WriteString("}")
		return sb.String()
	}
	return string(b)
}
