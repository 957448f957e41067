/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package modelsync

import (
	"context"
	stderrors "errors"

	"github.com/suparena/modelsync/dispatch"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/mapping"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// Save encodes v and upserts it keyed by its index field. A type without an
// index field, or an instance whose index is unset, is rejected with an
// *errors.IndexError before the store is touched.
func (c *Collection) Save(ctx context.Context, v any) (*storagemodels.UpdateResult, error) {
	key, value, doc, err := c.prepareSave(v)
	if err != nil {
		return nil, err
	}
	return c.UpdateOrInsert(ctx, key, value, doc)
}

// SaveAsync encodes v on the caller's goroutine, so later changes to v do not
// affect the write, then queues the upsert on the write lane.
func (c *Collection) SaveAsync(v any, cb WriteCallback) *dispatch.Future[*storagemodels.UpdateResult] {
	key, value, doc, err := c.prepareSave(v)
	if err != nil {
		return dispatch.Failed[*storagemodels.UpdateResult](err).OnComplete(cb)
	}
	return c.UpdateOrInsertAsync(key, value, doc, cb)
}

func (c *Collection) prepareSave(v any) (string, any, *document.Document, error) {
	f, value, err := c.engine.IndexValue(v)
	if err != nil {
		c.logger.Warn("save aborted", "error", err)
		return "", nil, nil, err
	}
	doc, err := c.engine.Encode(v)
	if err != nil {
		return "", nil, nil, err
	}
	return f.Name, value, doc, nil
}

// Load finds the document whose index field matches v's and decodes it onto
// v. It returns an *errors.IndexError without a store call when v has no
// index value, and an *errors.NotFoundError when nothing matches. Decode
// failures come back as an *errors.DecodeError with every other field of v
// assigned.
func (c *Collection) Load(ctx context.Context, v any) error {
	f, err := c.prepareLoad(v)
	if err != nil {
		return err
	}
	return c.load(ctx, f, v)
}

// LoadAsync is Load on the read lane. v is written by the lane goroutine and
// must not be used until cb has fired.
func (c *Collection) LoadAsync(v any, cb LoadedCallback) *dispatch.Future[struct{}] {
	var done func(struct{}, error)
	if cb != nil {
		done = func(_ struct{}, err error) { cb(err) }
	}

	f, err := c.prepareLoad(v)
	if err != nil {
		return dispatch.Failed[struct{}](err).OnComplete(done)
	}
	return dispatch.Run(c.sched, dispatch.LaneRead, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.load(ctx, f, v)
	}).OnComplete(done)
}

func (c *Collection) prepareLoad(v any) (query.Filter, error) {
	f, value, err := c.engine.IndexValue(v)
	if err != nil {
		c.logger.Warn("load aborted", "error", err)
		return query.Filter{}, err
	}
	return query.And(query.Eq(f.Name, value)), nil
}

func (c *Collection) load(ctx context.Context, f query.Filter, v any) error {
	doc, err := c.FindOne(ctx, f)
	if err != nil {
		return err
	}
	return c.engine.Decode(doc, v)
}

// LoadAll decodes every document of c into a new T. Documents that fail to
// decode are still returned, partially populated, and their
// *errors.DecodeError values are joined into the returned error. An empty
// collection yields an empty slice.
func LoadAll[T any](ctx context.Context, c *Collection) ([]*T, error) {
	docs, err := c.Find(ctx, query.All())
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c.engine, docs)
}

// LoadAllAsync is LoadAll on the read lane. On a partial decode failure the
// callback receives only the error.
func LoadAllAsync[T any](c *Collection, cb func([]*T, error)) *dispatch.Future[[]*T] {
	return dispatch.Run(c.sched, dispatch.LaneRead, func(ctx context.Context) ([]*T, error) {
		return LoadAll[T](ctx, c)
	}).OnComplete(cb)
}

func decodeAll[T any](e *mapping.Engine, docs []*document.Document) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		v, err := mapping.DecodeNew[T](e, doc)
		if v == nil {
			return nil, err
		}
		if err != nil {
			if !errors.IsDecodeError(err) {
				return nil, err
			}
			errs = append(errs, err)
		}
		out = append(out, v)
	}
	return out, stderrors.Join(errs...)
}
