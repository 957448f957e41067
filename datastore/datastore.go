/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// Collection is one named set of documents in a store. Implementations must
// be safe for concurrent use.
type Collection interface {
	Name() string

	InsertOne(ctx context.Context, doc *document.Document) error

	// UpdateOne modifies the first document matching filter.
	UpdateOne(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error)

	// UpdateMany modifies every document matching filter.
	UpdateMany(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error)

	// ReplaceOne swaps the first document matching filter for replacement.
	ReplaceOne(ctx context.Context, filter query.Filter, replacement *document.Document, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error)

	DeleteMany(ctx context.Context, filter query.Filter) (*storagemodels.DeleteResult, error)

	Find(ctx context.Context, filter query.Filter, opts ...storagemodels.FindOption) (Cursor, error)

	// FindOneAndUpdate updates the first match and returns it as it was
	// before the update. It returns errors.ErrNotFound when nothing matches.
	FindOneAndUpdate(ctx context.Context, filter query.Filter, update query.Update) (*document.Document, error)

	// FindOneAndDelete removes the first match and returns it. It returns
	// errors.ErrNotFound when nothing matches.
	FindOneAndDelete(ctx context.Context, filter query.Filter) (*document.Document, error)

	Count(ctx context.Context, filter query.Filter) (int64, error)
}

// Cursor iterates over find results.
type Cursor interface {
	// Next advances to the next document, returning false when exhausted or
	// on error.
	Next(ctx context.Context) bool
	Document() *document.Document
	Err() error
	Close(ctx context.Context) error
}

// Database hands out collections and owns the underlying connection.
type Database interface {
	Collection(name string) Collection
	Close(ctx context.Context) error
}

// All drains cur into a slice and closes it. The result is never nil.
func All(ctx context.Context, cur Cursor) ([]*document.Document, error) {
	defer cur.Close(ctx)

	docs := []*document.Document{}
	for cur.Next(ctx) {
		docs = append(docs, cur.Document())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// SliceCursor is a Cursor over documents already in memory.
type SliceCursor struct {
	docs []*document.Document
	pos  int
	cur  *document.Document
	err  error
}

// NewSliceCursor returns a cursor over docs.
func NewSliceCursor(docs []*document.Document) *SliceCursor {
	return &SliceCursor{docs: docs}
}

func (c *SliceCursor) Next(ctx context.Context) bool {
	if c.err != nil || c.pos >= len(c.docs) {
		c.cur = nil
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	c.cur = c.docs[c.pos]
	c.pos++
	return true
}

func (c *SliceCursor) Document() *document.Document { return c.cur }

func (c *SliceCursor) Err() error { return c.err }

func (c *SliceCursor) Close(ctx context.Context) error {
	c.docs = nil
	c.cur = nil
	return nil
}
