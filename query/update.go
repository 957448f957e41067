/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"reflect"

	"github.com/suparena/modelsync/document"
)

// UpdateOp names an update operator.
type UpdateOp string

const (
	OpSet   UpdateOp = "$set"
	OpUnset UpdateOp = "$unset"
	OpInc   UpdateOp = "$inc"
)

// Operation is one field modification of an Update.
type Operation struct {
	Op    UpdateOp
	Field string
	Value any
}

// Update describes how to modify a matched document: either a list of field
// operations or a whole replacement document.
type Update struct {
	ops         []Operation
	replacement *document.Document
}

// Set starts an update assigning value to field.
func Set(field string, value any) Update { return Update{}.Set(field, value) }

// Unset starts an update removing field.
func Unset(field string) Update { return Update{}.Unset(field) }

// Inc starts an update adding delta to a numeric field.
func Inc(field string, delta any) Update { return Update{}.Inc(field, delta) }

// Replace builds a replacement-style update. The stored document keeps its _id.
func Replace(doc *document.Document) Update {
	return Update{replacement: doc}
}

func (u Update) Set(field string, value any) Update { return u.with(OpSet, field, value) }
func (u Update) Unset(field string) Update          { return u.with(OpUnset, field, nil) }
func (u Update) Inc(field string, delta any) Update { return u.with(OpInc, field, delta) }

func (u Update) with(op UpdateOp, field string, value any) Update {
	ops := make([]Operation, len(u.ops), len(u.ops)+1)
	copy(ops, u.ops)
	return Update{ops: append(ops, Operation{Op: op, Field: field, Value: value})}
}

// Operations returns the field operations in the order they were added.
func (u Update) Operations() []Operation {
	out := make([]Operation, len(u.ops))
	copy(out, u.ops)
	return out
}

// Replacement returns the replacement document, or nil for operator updates.
func (u Update) Replacement() *document.Document { return u.replacement }

// IsReplacement reports whether the update swaps the whole document.
func (u Update) IsReplacement() bool { return u.replacement != nil }

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool { return u.replacement == nil && len(u.ops) == 0 }

// Apply modifies doc in place.
func (u Update) Apply(doc *document.Document) error {
	if u.replacement != nil {
		id, hasID := doc.Get("_id")
		for _, k := range doc.Keys() {
			doc.Delete(k)
		}
		if hasID {
			doc.Set("_id", id)
		}
		for _, e := range u.replacement.Clone().Elements() {
			if e.Key == "_id" && hasID {
				continue
			}
			doc.Set(e.Key, e.Value)
		}
		return nil
	}

	for _, op := range u.ops {
		switch op.Op {
		case OpSet:
			setPath(doc, op.Field, op.Value)
		case OpUnset:
			unsetPath(doc, op.Field)
		case OpInc:
			cur, ok := Lookup(doc, op.Field)
			if !ok {
				setPath(doc, op.Field, op.Value)
				continue
			}
			sum, err := add(cur, op.Value)
			if err != nil {
				return fmt.Errorf("%s %q: %w", OpInc, op.Field, err)
			}
			setPath(doc, op.Field, sum)
		default:
			return fmt.Errorf("unknown update operator %q", op.Op)
		}
	}
	return nil
}

// Doc renders the update in MongoDB update-document form. Replacement updates
// render as the replacement document itself.
func (u Update) Doc() *document.Document {
	if u.replacement != nil {
		return u.replacement
	}
	d := &document.Document{}
	for _, op := range u.ops {
		group, ok := d.Get(string(op.Op))
		if !ok {
			group = &document.Document{}
			d.Set(string(op.Op), group)
		}
		value := op.Value
		if op.Op == OpUnset {
			value = ""
		}
		group.(*document.Document).Set(op.Field, value)
	}
	return d
}

func (u Update) String() string {
	return u.Doc().String()
}

func add(a, b any) (any, error) {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if isInt(ra) && isInt(rb) {
		return ra.Int() + rb.Int(), nil
	}
	fa, ok := document.ToFloat(a)
	if !ok {
		return nil, fmt.Errorf("cannot increment non-numeric %T", a)
	}
	fb, ok := document.ToFloat(b)
	if !ok {
		return nil, fmt.Errorf("non-numeric delta %T", b)
	}
	return fa + fb, nil
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}
