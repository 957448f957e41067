/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// UpdateResult reports the outcome of an update, replace or upsert.
type UpdateResult struct {
	// MatchedCount is the number of documents that matched the filter.
	MatchedCount int64
	// ModifiedCount is the number of documents actually changed.
	ModifiedCount int64
	// UpsertedCount is 1 when an upsert inserted a new document.
	UpsertedCount int64
	// UpsertedID is the store id of the inserted document, if any.
	UpsertedID any
}

// DeleteResult reports the outcome of a delete.
type DeleteResult struct {
	DeletedCount int64
}

// UpdateOptions configures update and replace operations.
type UpdateOptions struct {
	// Upsert inserts a new document when nothing matches.
	Upsert bool
}
