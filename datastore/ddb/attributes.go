/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/suparena/modelsync/document"
)

// marshalDocument converts a document into a DynamoDB item.
func marshalDocument(doc *document.Document) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, doc.Len())
	for _, e := range doc.Elements() {
		av, err := toAttributeValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", e.Key, err)
		}
		item[e.Key] = av
	}
	return item, nil
}

// toAttributeValue converts a document value. Nested documents become maps,
// sequences become lists and times are stored as RFC3339 strings so they
// sort lexically.
func toAttributeValue(v any) (types.AttributeValue, error) {
	switch tv := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case *document.Document:
		if tv == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		m, err := marshalDocument(tv)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case time.Time:
		return &types.AttributeValueMemberS{Value: tv.UTC().Format(time.RFC3339Nano)}, nil
	case strfmt.DateTime:
		return &types.AttributeValueMemberS{Value: time.Time(tv).UTC().Format(time.RFC3339Nano)}, nil
	case []byte:
		return attributevalue.Marshal(tv)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return toAttributeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		list := make([]types.AttributeValue, rv.Len())
		for i := range list {
			av, err := toAttributeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case reflect.Map:
		if rv.IsNil() {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]types.AttributeValue, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			av, err := toAttributeValue(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", iter.Key().String(), err)
			}
			m[iter.Key().String()] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	}
	return attributevalue.Marshal(v)
}

// unmarshalItem converts a DynamoDB item into a document with sorted keys.
func unmarshalItem(item map[string]types.AttributeValue) (*document.Document, error) {
	keys := make([]string, 0, len(item))
	for k := range item {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := &document.Document{}
	for _, k := range keys {
		v, err := fromAttributeValue(item[k])
		if err != nil {
			return nil, fmt.Errorf("unmarshal %q: %w", k, err)
		}
		doc.Set(k, v)
	}
	return doc, nil
}

// fromAttributeValue converts an attribute into a document value. Numbers
// come back as int64 when integral and float64 otherwise.
func fromAttributeValue(av types.AttributeValue) (any, error) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return tv.Value, nil
	case *types.AttributeValueMemberN:
		return parseNumber(tv.Value)
	case *types.AttributeValueMemberBOOL:
		return tv.Value, nil
	case *types.AttributeValueMemberB:
		return tv.Value, nil
	case *types.AttributeValueMemberM:
		return unmarshalItem(tv.Value)
	case *types.AttributeValueMemberL:
		out := make([]any, len(tv.Value))
		for i, e := range tv.Value {
			v, err := fromAttributeValue(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberSS:
		out := make([]any, len(tv.Value))
		for i, s := range tv.Value {
			out[i] = s
		}
		return out, nil
	case *types.AttributeValueMemberNS:
		out := make([]any, len(tv.Value))
		for i, s := range tv.Value {
			n, err := parseNumber(s)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case *types.AttributeValueMemberBS:
		out := make([]any, len(tv.Value))
		for i, b := range tv.Value {
			out[i] = b
		}
		return out, nil
	}

	var generic any
	if err := attributevalue.Unmarshal(av, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}
