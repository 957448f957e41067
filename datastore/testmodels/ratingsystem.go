/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package testmodels

import "github.com/go-openapi/strfmt"

type RatingSystem struct {

	// Timestamp when the rating system was created.
	// Format: date-time
	CreatedAt *strfmt.DateTime `dbsync:"createdAt"`

	// A description of the rating system.
	Description *string `dbsync:"description"`

	// Unique identifier for the rating system.
	ID *string `dbsync:"_id,index"`

	// Name of the rating system.
	Name *string `dbsync:"name"`

	// site Url
	SiteURL string `dbsync:"siteUrl"`

	// Timestamp when the rating system was last updated.
	// Format: date-time
	UpdatedAt *strfmt.DateTime `dbsync:"updatedAt"`
}
