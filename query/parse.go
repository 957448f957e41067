/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"

	"github.com/suparena/modelsync/document"
)

// ParseFilter reads a filter in MongoDB query-document form, the inverse of
// Filter.Doc. Several top-level fields combine with $and.
func ParseFilter(doc *document.Document) (Filter, error) {
	var parts []Filter
	for _, e := range doc.Elements() {
		if e.Key == string(OpAnd) {
			items, ok := e.Value.([]any)
			if !ok {
				return Filter{}, fmt.Errorf("query: $and expects an array, got %T", e.Value)
			}
			for i, item := range items {
				sub, ok := item.(*document.Document)
				if !ok {
					return Filter{}, fmt.Errorf("query: $and[%d] is %T, not a document", i, item)
				}
				f, err := ParseFilter(sub)
				if err != nil {
					return Filter{}, err
				}
				parts = append(parts, f)
			}
			continue
		}
		if strings.HasPrefix(e.Key, "$") {
			return Filter{}, fmt.Errorf("query: unsupported top-level operator %q", e.Key)
		}

		fs, err := parseCondition(e.Key, e.Value)
		if err != nil {
			return Filter{}, err
		}
		parts = append(parts, fs...)
	}

	switch len(parts) {
	case 0:
		return All(), nil
	case 1:
		return parts[0], nil
	default:
		return And(parts...), nil
	}
}

// parseCondition handles one field entry: either a literal (equality) or an
// operator document such as {"$gt": 3, "$lt": 9}.
func parseCondition(field string, value any) ([]Filter, error) {
	ops, ok := value.(*document.Document)
	if !ok || ops.Len() == 0 || !strings.HasPrefix(ops.Keys()[0], "$") {
		return []Filter{Eq(field, value)}, nil
	}

	var out []Filter
	for _, e := range ops.Elements() {
		switch Op(e.Key) {
		case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
			out = append(out, Filter{Op: Op(e.Key), Field: field, Value: e.Value})
		case OpIn:
			vs, ok := e.Value.([]any)
			if !ok {
				return nil, fmt.Errorf("query: %s.$in expects an array, got %T", field, e.Value)
			}
			out = append(out, In(field, vs...))
		case OpExists:
			present, ok := e.Value.(bool)
			if !ok {
				return nil, fmt.Errorf("query: %s.$exists expects a boolean, got %T", field, e.Value)
			}
			out = append(out, Exists(field, present))
		default:
			return nil, fmt.Errorf("query: unsupported operator %q on %s", e.Key, field)
		}
	}
	return out, nil
}

// ParseUpdate reads an update document, the inverse of Update.Doc. A document
// whose keys are all operators becomes a field update, one without operators
// a replacement. Mixing the two is an error.
func ParseUpdate(doc *document.Document) (Update, error) {
	if doc.Len() == 0 {
		return Update{}, fmt.Errorf("query: empty update document")
	}

	operators := 0
	for _, k := range doc.Keys() {
		if strings.HasPrefix(k, "$") {
			operators++
		}
	}
	switch operators {
	case 0:
		return Replace(doc), nil
	case doc.Len():
	default:
		return Update{}, fmt.Errorf("query: update mixes operators and fields")
	}

	var u Update
	for _, e := range doc.Elements() {
		group, ok := e.Value.(*document.Document)
		if !ok {
			return Update{}, fmt.Errorf("query: %s expects a document, got %T", e.Key, e.Value)
		}
		op := UpdateOp(e.Key)
		switch op {
		case OpSet, OpInc:
			for _, g := range group.Elements() {
				u = u.with(op, g.Key, g.Value)
			}
		case OpUnset:
			for _, g := range group.Elements() {
				u = u.Unset(g.Key)
			}
		default:
			return Update{}, fmt.Errorf("query: unsupported update operator %q", e.Key)
		}
	}
	return u, nil
}
