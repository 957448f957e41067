/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"reflect"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/modelsync/document"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// toBSON converts a document into an ordered bson.D.
func toBSON(doc *document.Document) bson.D {
	if doc == nil {
		return bson.D{}
	}
	out := make(bson.D, 0, doc.Len())
	for _, e := range doc.Elements() {
		out = append(out, bson.E{Key: e.Key, Value: toBSONValue(e.Value)})
	}
	return out
}

func toBSONValue(v any) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case *document.Document:
		if tv == nil {
			return nil
		}
		return toBSON(tv)
	case []any:
		out := make(bson.A, len(tv))
		for i, e := range tv {
			out[i] = toBSONValue(e)
		}
		return out
	case []byte:
		return tv
	case strfmt.DateTime:
		return time.Time(tv)
	case strfmt.ObjectId:
		return primitive.ObjectID(tv)
	case time.Time:
		return tv
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && !rv.IsNil() {
		out := make(bson.A, rv.Len())
		for i := range out {
			out[i] = toBSONValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

// fromBSON converts a decoded bson.D into a document.
func fromBSON(d bson.D) *document.Document {
	doc := &document.Document{}
	for _, e := range d {
		doc.Set(e.Key, fromBSONValue(e.Value))
	}
	return doc
}

func fromBSONValue(v any) any {
	switch tv := v.(type) {
	case bson.D:
		return fromBSON(tv)
	case bson.M:
		return document.FromMap(tv)
	case bson.A:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = fromBSONValue(e)
		}
		return out
	case int32:
		return int64(tv)
	case primitive.DateTime:
		return tv.Time().UTC()
	case primitive.Binary:
		return tv.Data
	case primitive.Null, primitive.Undefined:
		return nil
	}
	return v
}
