/*
Package mapping converts persisted Go values to documents and back.

A persisted type is a struct with at least one field tagged dbsync. The tag
value is an optional alias followed by options:

	type User struct {
	    ID      int       `dbsync:"id,index"`
	    Name    string    `dbsync:"name"`
	    Profile *Profile  `dbsync:"profile"`
	    Posts   []Post    `dbsync:"posts"`
	    Secret  string    `dbsync:"-"`
	}

Untagged fields are not persisted. Embedded structs contribute their tagged
fields after those of the outer struct; an outer field shadows an embedded
field with the same document key. Struct types without tagged fields, such
as time.Time or strfmt.DateTime, are copied verbatim. Channels, functions
and complex numbers are skipped.

Descriptors are computed once per type and cached by the Engine:

	engine := mapping.NewEngine(mapping.WithLogger(logger))
	doc, err := engine.Encode(user)
	u, err := mapping.DecodeNew[User](engine, doc)

Decoding never aborts on a single bad field. Failed fields are collected in
an *errors.DecodeError returned alongside the partially populated value.
*/
package mapping
