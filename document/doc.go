/*
Package document defines the generic record exchanged between the mapping engine and
the store drivers.

A Document is an ordered set of unique keys. Values are primitives, nested documents,
or sequences of either:

	doc := document.New("id", 1, "name", "alice")
	doc.Set("profile", document.New("bio", "hello"))
	doc.Set("tags", []any{"a", "b"})

Key order is kept through Set and through the JSON codec, so a document built from
an object lists its fields in declaration order.
*/
package document
