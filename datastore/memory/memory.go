/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides an in-process implementation of the datastore
// contract, used by tests and the memory backend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/suparena/modelsync/datastore"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// IDField is the key under which every stored document carries its id.
const IDField = "_id"

// Database is an in-memory datastore.Database.
type Database struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{collections: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (db *Database) Collection(name string) datastore.Collection {
	return db.Get(name)
}

// Get is Collection with the concrete type, for access to the test helpers.
func (db *Database) Get(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.collections[name]
	if !ok {
		c = NewCollection(name)
		db.collections[name] = c
	}
	return c
}

// Close drops every collection.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.collections = make(map[string]*Collection)
	return nil
}

// Collection is an in-memory datastore.Collection. Documents are kept in
// insertion order and copied on the way in and out.
type Collection struct {
	name  string
	mu    sync.RWMutex
	docs  []*document.Document
	calls atomic.Int64

	insertError error
	updateError error
	deleteError error
	findError   error
}

// NewCollection creates an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{name: name}
}

// WithInsertError makes InsertOne return an error
func (c *Collection) WithInsertError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertError = err
	return c
}

// WithUpdateError makes update, replace and FindOneAndUpdate operations return an error
func (c *Collection) WithUpdateError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateError = err
	return c
}

// WithDeleteError makes DeleteMany and FindOneAndDelete return an error
func (c *Collection) WithDeleteError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteError = err
	return c
}

// WithFindError makes Find and Count return an error
func (c *Collection) WithFindError(err error) *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findError = err
	return c
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) InsertOne(ctx context.Context, doc *document.Document) error {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertError != nil {
		return c.insertError
	}
	return c.insert(doc)
}

// insert stores a copy of doc, assigning an id when it has none.
// Callers hold the write lock.
func (c *Collection) insert(doc *document.Document) error {
	stored := withID(doc)
	id, _ := stored.Get(IDField)
	for _, d := range c.docs {
		if existing, _ := d.Get(IDField); document.ValuesEqual(existing, id) {
			return errors.NewAlreadyExistsError(c.name, fmt.Sprint(id))
		}
	}
	c.docs = append(c.docs, stored)
	return nil
}

func withID(doc *document.Document) *document.Document {
	if doc.Has(IDField) {
		return doc.Clone()
	}
	out := document.New(IDField, uuid.NewString())
	for _, e := range doc.Clone().Elements() {
		out.Set(e.Key, e.Value)
	}
	return out
}

func (c *Collection) UpdateOne(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	return c.update(filter, update, opts, false)
}

func (c *Collection) UpdateMany(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	return c.update(filter, update, opts, true)
}

func (c *Collection) ReplaceOne(ctx context.Context, filter query.Filter, replacement *document.Document, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	if replacement == nil {
		return nil, errors.NewValidationError("replacement", "must not be nil")
	}
	return c.update(filter, query.Replace(replacement), opts, false)
}

func (c *Collection) update(filter query.Filter, update query.Update, opts storagemodels.UpdateOptions, multi bool) (*storagemodels.UpdateResult, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateError != nil {
		return nil, c.updateError
	}

	// apply to copies first so a failing update leaves the collection untouched
	var positions []int
	var updated []*document.Document
	for i, d := range c.docs {
		if !filter.Match(d) {
			continue
		}
		cp := d.Clone()
		if err := update.Apply(cp); err != nil {
			return nil, fmt.Errorf("memory: update %s: %w", c.name, err)
		}
		positions = append(positions, i)
		updated = append(updated, cp)
		if !multi {
			break
		}
	}

	res := &storagemodels.UpdateResult{MatchedCount: int64(len(positions))}
	for j, i := range positions {
		if !c.docs[i].Equal(updated[j]) {
			res.ModifiedCount++
		}
		c.docs[i] = updated[j]
	}
	if len(positions) > 0 || !opts.Upsert {
		return res, nil
	}

	seed := &document.Document{}
	for _, eq := range filter.Equalities() {
		if err := query.Set(eq.Key, eq.Value).Apply(seed); err != nil {
			return nil, err
		}
	}
	if err := update.Apply(seed); err != nil {
		return nil, fmt.Errorf("memory: upsert %s: %w", c.name, err)
	}
	if err := c.insert(seed); err != nil {
		return nil, err
	}
	res.UpsertedCount = 1
	res.UpsertedID, _ = c.docs[len(c.docs)-1].Get(IDField)
	return res, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter query.Filter) (*storagemodels.DeleteResult, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteError != nil {
		return nil, c.deleteError
	}

	kept := c.docs[:0]
	var deleted int64
	for _, d := range c.docs {
		if filter.Match(d) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	for i := len(kept); i < len(c.docs); i++ {
		c.docs[i] = nil
	}
	c.docs = kept
	return &storagemodels.DeleteResult{DeletedCount: deleted}, nil
}

func (c *Collection) Find(ctx context.Context, filter query.Filter, opts ...storagemodels.FindOption) (datastore.Cursor, error) {
	c.calls.Add(1)
	o := storagemodels.ApplyFindOptions(opts...)

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.findError != nil {
		return nil, c.findError
	}

	var out []*document.Document
	var skipped int64
	for _, d := range c.docs {
		if !filter.Match(d) {
			continue
		}
		if skipped < o.Skip {
			skipped++
			continue
		}
		out = append(out, d.Clone())
		if o.Limit > 0 && int64(len(out)) >= o.Limit {
			break
		}
	}
	return datastore.NewSliceCursor(out), nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter query.Filter, update query.Update) (*document.Document, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateError != nil {
		return nil, c.updateError
	}

	i := c.first(filter)
	if i < 0 {
		return nil, errors.NewNotFoundError(c.name, filter.String())
	}
	before := c.docs[i]
	cp := before.Clone()
	if err := update.Apply(cp); err != nil {
		return nil, fmt.Errorf("memory: update %s: %w", c.name, err)
	}
	c.docs[i] = cp
	return before.Clone(), nil
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter query.Filter) (*document.Document, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteError != nil {
		return nil, c.deleteError
	}

	i := c.first(filter)
	if i < 0 {
		return nil, errors.NewNotFoundError(c.name, filter.String())
	}
	removed := c.docs[i]
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return removed, nil
}

func (c *Collection) Count(ctx context.Context, filter query.Filter) (int64, error) {
	c.calls.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.findError != nil {
		return 0, c.findError
	}

	var n int64
	for _, d := range c.docs {
		if filter.Match(d) {
			n++
		}
	}
	return n, nil
}

func (c *Collection) first(filter query.Filter) int {
	for i, d := range c.docs {
		if filter.Match(d) {
			return i
		}
	}
	return -1
}

// Helper methods for testing

// SetData replaces the stored documents (for testing)
func (c *Collection) SetData(docs ...*document.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make([]*document.Document, len(docs))
	for i, d := range docs {
		c.docs[i] = d.Clone()
	}
}

// GetData returns copies of the stored documents in insertion order (for testing)
func (c *Collection) GetData() []*document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*document.Document, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Clone()
	}
	return out
}

// Len returns the number of stored documents
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Calls returns how many store operations have been invoked
func (c *Collection) Calls() int64 {
	return c.calls.Load()
}

// Clear removes all data
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = nil
}
