/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the document as a JSON object keeping key order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d.Elements() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", e.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the source key order.
// Numbers decode as int64 when integral, float64 otherwise.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("document: expected JSON object, got %v", tok)
	}

	parsed, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Parse decodes a JSON object into a new Document.
func Parse(data []byte) (*Document, error) {
	d := &Document{}
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return d, nil
}

// decodeObject reads key/value pairs until the closing brace. The opening brace
// must already be consumed.
func decodeObject(dec *json.Decoder) (*Document, error) {
	d := &Document{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("document: expected object key, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("document: key %q: %w", key, err)
		}
		d.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tv := tok.(type) {
	case json.Delim:
		switch tv {
		case '{':
			return decodeObject(dec)
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", tv)
		}
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return i, nil
		}
		return tv.Float64()
	default:
		// string, bool or nil
		return tv, nil
	}
}
