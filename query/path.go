/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"strings"

	"github.com/suparena/modelsync/document"
)

// Lookup resolves a dotted field path inside doc.
func Lookup(doc *document.Document, path string) (any, bool) {
	cur := doc
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := cur.Get(p)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(*document.Document)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// setPath stores value at a dotted path, creating intermediate documents.
func setPath(doc *document.Document, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		v, ok := cur.Get(p)
		next, isDoc := v.(*document.Document)
		if !ok || !isDoc {
			next = &document.Document{}
			cur.Set(p, next)
		}
		cur = next
	}
	cur.Set(parts[len(parts)-1], value)
}

func unsetPath(doc *document.Document, path string) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		v, _ := cur.Get(p)
		next, ok := v.(*document.Document)
		if !ok {
			return
		}
		cur = next
	}
	cur.Delete(parts[len(parts)-1])
}
