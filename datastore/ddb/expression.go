/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
)

// expression collects the attribute name and value placeholders shared by the
// condition and update expressions of one request.
type expression struct {
	names    map[string]string
	byName   map[string]string
	values   map[string]types.AttributeValue
	zeroName string
}

func newExpression() *expression {
	return &expression{
		names:  make(map[string]string),
		byName: make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

// Names returns the placeholder map, or nil when no name was used.
func (x *expression) Names() map[string]string {
	if len(x.names) == 0 {
		return nil
	}
	return x.names
}

// Values returns the value map, or nil when no value was used.
func (x *expression) Values() map[string]types.AttributeValue {
	if len(x.values) == 0 {
		return nil
	}
	return x.values
}

// name returns the placeholder path for a dotted field path.
func (x *expression) name(path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		ph, ok := x.byName[p]
		if !ok {
			ph = fmt.Sprintf("#n%d", len(x.names))
			x.names[ph] = p
			x.byName[p] = ph
		}
		parts[i] = ph
	}
	return strings.Join(parts, ".")
}

func (x *expression) value(v any) (string, error) {
	av, err := toAttributeValue(v)
	if err != nil {
		return "", err
	}
	ph := fmt.Sprintf(":v%d", len(x.values))
	x.values[ph] = av
	return ph, nil
}

var comparators = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

// condition renders a filter as a DynamoDB condition expression. An empty
// string means the filter places no constraint.
func (x *expression) condition(f query.Filter) (string, error) {
	switch f.Op {
	case query.OpAll:
		return "", nil

	case query.OpAnd:
		var parts []string
		for _, c := range f.Children {
			s, err := x.condition(c)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		switch len(parts) {
		case 0:
			return "", nil
		case 1:
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil

	case query.OpExists:
		present, _ := f.Value.(bool)
		if present {
			return fmt.Sprintf("attribute_exists(%s)", x.name(f.Field)), nil
		}
		return fmt.Sprintf("attribute_not_exists(%s)", x.name(f.Field)), nil

	case query.OpNe:
		n := x.name(f.Field)
		v, err := x.value(f.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(attribute_not_exists(%s) OR %s <> %s)", n, n, v), nil

	case query.OpIn:
		values := f.Values()
		if len(values) == 0 {
			return "", errors.NewValidationError(f.Field, "$in requires at least one value")
		}
		n := x.name(f.Field)
		phs := make([]string, len(values))
		for i, val := range values {
			ph, err := x.value(val)
			if err != nil {
				return "", err
			}
			phs[i] = ph
		}
		return fmt.Sprintf("%s IN (%s)", n, strings.Join(phs, ", ")), nil
	}

	cmp, ok := comparators[f.Op]
	if !ok {
		return "", errors.NewValidationError(f.Field, fmt.Sprintf("unsupported operator %q", f.Op))
	}
	n := x.name(f.Field)
	v, err := x.value(f.Value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", n, cmp, v), nil
}

// update renders operator updates as a DynamoDB update expression, e.g.
// "SET #n0 = :v0, #n1 = if_not_exists(#n1, :v1) + :v2 REMOVE #n2".
// keyAttr may not be modified.
func (x *expression) update(u query.Update, keyAttr string) (string, error) {
	if u.IsReplacement() {
		return "", errors.NewValidationError("update", "replacement updates are written with PutItem")
	}
	if u.IsEmpty() {
		return "", errors.NewValidationError("update", "no updates provided")
	}

	var sets, removes []string
	for _, op := range u.Operations() {
		if op.Field == keyAttr {
			return "", errors.NewValidationError(op.Field, "the key attribute cannot be updated")
		}
		n := x.name(op.Field)
		switch op.Op {
		case query.OpSet:
			v, err := x.value(op.Value)
			if err != nil {
				return "", err
			}
			sets = append(sets, fmt.Sprintf("%s = %s", n, v))
		case query.OpUnset:
			removes = append(removes, n)
		case query.OpInc:
			if x.zeroName == "" {
				ph, err := x.value(0)
				if err != nil {
					return "", err
				}
				x.zeroName = ph
			}
			v, err := x.value(op.Value)
			if err != nil {
				return "", err
			}
			sets = append(sets, fmt.Sprintf("%s = if_not_exists(%s, %s) + %s", n, n, x.zeroName, v))
		default:
			return "", errors.NewValidationError(op.Field, fmt.Sprintf("unsupported update operator %q", op.Op))
		}
	}

	var clauses []string
	if len(sets) > 0 {
		clauses = append(clauses, "SET "+strings.Join(sets, ", "))
	}
	if len(removes) > 0 {
		clauses = append(clauses, "REMOVE "+strings.Join(removes, ", "))
	}
	return strings.Join(clauses, " "), nil
}
