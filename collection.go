/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package modelsync

import (
	"context"
	"log/slog"

	"github.com/suparena/modelsync/datastore"
	"github.com/suparena/modelsync/dispatch"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/mapping"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// Completion callbacks. Each fires exactly once, with either a result or a
// non-nil error.
type (
	WriteCallback     func(*storagemodels.UpdateResult, error)
	DocumentCallback  func(*document.Document, error)
	DocumentsCallback func([]*document.Document, error)
	DeleteCallback    func(*storagemodels.DeleteResult, error)
	LoadedCallback    func(error)
)

// Collection ties one store collection to a mapping engine and a dispatch
// scheduler. Every operation has a synchronous form and an Async form that
// runs on the scheduler: writes on the write lane, reads on the read lane.
//
// Async forms never block and never panic on the caller's goroutine. Their
// callback, when not nil, runs on the lane goroutine, or immediately on the
// caller's goroutine when the operation fails before being queued.
type Collection struct {
	store  datastore.Collection
	engine *mapping.Engine
	sched  *dispatch.Scheduler
	logger *slog.Logger
}

// NewCollection builds a facade over store. A nil logger uses slog.Default().
func NewCollection(store datastore.Collection, engine *mapping.Engine, sched *dispatch.Scheduler, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collection{
		store:  store,
		engine: engine,
		sched:  sched,
		logger: logger.With("collection", store.Name()),
	}
}

func (c *Collection) Name() string { return c.store.Name() }

// Store returns the underlying driver collection.
func (c *Collection) Store() datastore.Collection { return c.store }

func (c *Collection) Insert(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return errors.NewValidationError("document", "must not be nil")
	}
	return c.store.InsertOne(ctx, doc)
}

// InsertAsync inserts doc and echoes it to cb on success.
func (c *Collection) InsertAsync(doc *document.Document, cb DocumentCallback) *dispatch.Future[*document.Document] {
	return dispatch.Run(c.sched, dispatch.LaneWrite, func(ctx context.Context) (*document.Document, error) {
		if err := c.Insert(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}).OnComplete(cb)
}

// Update modifies the first document matching f. It never upserts.
func (c *Collection) Update(ctx context.Context, f query.Filter, u query.Update) (*storagemodels.UpdateResult, error) {
	return c.UpdateWithOptions(ctx, f, u, false, false)
}

func (c *Collection) UpdateAsync(f query.Filter, u query.Update, cb WriteCallback) *dispatch.Future[*storagemodels.UpdateResult] {
	return c.UpdateWithOptionsAsync(f, u, false, false, cb)
}

// UpdateWithOptions modifies the first match, or every match when multi is
// set, inserting a document built from f and u when upsert is set and
// nothing matches.
func (c *Collection) UpdateWithOptions(ctx context.Context, f query.Filter, u query.Update, upsert, multi bool) (*storagemodels.UpdateResult, error) {
	opts := storagemodels.UpdateOptions{Upsert: upsert}
	if multi {
		return c.store.UpdateMany(ctx, f, u, opts)
	}
	return c.store.UpdateOne(ctx, f, u, opts)
}

func (c *Collection) UpdateWithOptionsAsync(f query.Filter, u query.Update, upsert, multi bool, cb WriteCallback) *dispatch.Future[*storagemodels.UpdateResult] {
	return dispatch.Run(c.sched, dispatch.LaneWrite, func(ctx context.Context) (*storagemodels.UpdateResult, error) {
		return c.UpdateWithOptions(ctx, f, u, upsert, multi)
	}).OnComplete(cb)
}

// UpdateOrInsert replaces the document whose key equals value, inserting
// replacement when there is none.
func (c *Collection) UpdateOrInsert(ctx context.Context, key string, value any, replacement *document.Document) (*storagemodels.UpdateResult, error) {
	if replacement == nil {
		return nil, errors.NewValidationError("replacement", "must not be nil")
	}
	return c.store.ReplaceOne(ctx, query.Eq(key, value), replacement, storagemodels.UpdateOptions{Upsert: true})
}

func (c *Collection) UpdateOrInsertAsync(key string, value any, replacement *document.Document, cb WriteCallback) *dispatch.Future[*storagemodels.UpdateResult] {
	return dispatch.Run(c.sched, dispatch.LaneWrite, func(ctx context.Context) (*storagemodels.UpdateResult, error) {
		return c.UpdateOrInsert(ctx, key, value, replacement)
	}).OnComplete(cb)
}

// FindOne returns the first document matching f, or a *errors.NotFoundError.
func (c *Collection) FindOne(ctx context.Context, f query.Filter) (*document.Document, error) {
	cur, err := c.store.Find(ctx, f, storagemodels.WithLimit(1))
	if err != nil {
		return nil, err
	}
	docs, err := datastore.All(ctx, cur)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.NewNotFoundError(c.Name(), f.String())
	}
	return docs[0], nil
}

func (c *Collection) FindOneAsync(f query.Filter, cb DocumentCallback) *dispatch.Future[*document.Document] {
	return dispatch.Run(c.sched, dispatch.LaneRead, func(ctx context.Context) (*document.Document, error) {
		return c.FindOne(ctx, f)
	}).OnComplete(cb)
}

// Find returns every document matching f in cursor order. The result is
// never nil on success.
func (c *Collection) Find(ctx context.Context, f query.Filter, opts ...storagemodels.FindOption) ([]*document.Document, error) {
	cur, err := c.store.Find(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	return datastore.All(ctx, cur)
}

func (c *Collection) FindAsync(f query.Filter, cb DocumentsCallback) *dispatch.Future[[]*document.Document] {
	return dispatch.Run(c.sched, dispatch.LaneRead, func(ctx context.Context) ([]*document.Document, error) {
		return c.Find(ctx, f)
	}).OnComplete(cb)
}

// FindAndUpdate updates the first match and returns it as it was before.
func (c *Collection) FindAndUpdate(ctx context.Context, f query.Filter, u query.Update) (*document.Document, error) {
	return c.store.FindOneAndUpdate(ctx, f, u)
}

func (c *Collection) FindAndUpdateAsync(f query.Filter, u query.Update, cb DocumentCallback) *dispatch.Future[*document.Document] {
	return dispatch.Run(c.sched, dispatch.LaneWrite, func(ctx context.Context) (*document.Document, error) {
		return c.FindAndUpdate(ctx, f, u)
	}).OnComplete(cb)
}

// FindAndRemove deletes the first match and returns it.
func (c *Collection) FindAndRemove(ctx context.Context, f query.Filter) (*document.Document, error) {
	return c.store.FindOneAndDelete(ctx, f)
}

func (c *Collection) FindAndRemoveAsync(f query.Filter, cb DocumentCallback) *dispatch.Future[*document.Document] {
	return dispatch.Run(c.sched, dispatch.LaneWrite, func(ctx context.Context) (*document.Document, error) {
		return c.FindAndRemove(ctx, f)
	}).OnComplete(cb)
}

// Remove deletes every document matching f.
func (c *Collection) Remove(ctx context.Context, f query.Filter) (*storagemodels.DeleteResult, error) {
	return c.store.DeleteMany(ctx, f)
}

func (c *Collection) RemoveAsync(f query.Filter, cb DeleteCallback) *dispatch.Future[*storagemodels.DeleteResult] {
	return dispatch.Run(c.sched, dispatch.LaneWrite, func(ctx context.Context) (*storagemodels.DeleteResult, error) {
		return c.Remove(ctx, f)
	}).OnComplete(cb)
}

func (c *Collection) Count(ctx context.Context, f query.Filter) (int64, error) {
	return c.store.Count(ctx, f)
}

func (c *Collection) CountAsync(f query.Filter, cb func(int64, error)) *dispatch.Future[int64] {
	return dispatch.Run(c.sched, dispatch.LaneRead, func(ctx context.Context) (int64, error) {
		return c.Count(ctx, f)
	}).OnComplete(cb)
}
