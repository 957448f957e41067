/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package testmodels

import (
	"github.com/go-openapi/strfmt"
	"github.com/suparena/modelsync/registry"
)

// Profile is persisted nested inside a User.
type Profile struct {
	UID      *int    `dbsync:"uid,index"`
	Nickname *string `dbsync:"nickname"`
}

type Audit struct {
	CreatedAt strfmt.DateTime `dbsync:"createdAt"`
	UpdatedAt strfmt.DateTime `dbsync:"updatedAt"`
}

type User struct {
	Audit

	ID      *int              `dbsync:"id,index"`
	Name    string            `dbsync:"name"`
	Email   strfmt.Email      `dbsync:"email"`
	Age     int               `dbsync:"age"`
	Tags    []string          `dbsync:"tags"`
	Profile *Profile          `dbsync:"profile"`
	Friends []*Profile        `dbsync:"friends"`
	Meta    map[string]string `dbsync:"meta"`

	// Session is not persisted.
	Session string `dbsync:"-"`
}

// Note has no index field.
type Note struct {
	Text string `dbsync:"text"`
}

func init() {
	registry.RegisterType("users", func() *User { return &User{} })
	registry.RegisterType("ratingsystems", func() *RatingSystem { return &RatingSystem{} })
}
