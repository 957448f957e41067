/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package modelsync

import (
	"context"
	"reflect"

	"github.com/suparena/modelsync/dispatch"
	"github.com/suparena/modelsync/mapping"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// TypedCollection provides type-safe persistence of T over a Collection.
type TypedCollection[T any] struct {
	*Collection
}

// Typed binds the named collection of client to T. It fails when T is not a
// persisted type or its descriptor is invalid.
func Typed[T any](client *Client, name string) (*TypedCollection[T], error) {
	return Bind[T](client.Collection(name))
}

// Bind binds an existing facade to T.
func Bind[T any](c *Collection) (*TypedCollection[T], error) {
	if _, err := c.engine.Describe(reflect.TypeOf((*T)(nil)).Elem()); err != nil {
		return nil, err
	}
	return &TypedCollection[T]{Collection: c}, nil
}

func (tc *TypedCollection[T]) Save(ctx context.Context, v *T) (*storagemodels.UpdateResult, error) {
	return tc.Collection.Save(ctx, v)
}

func (tc *TypedCollection[T]) SaveAsync(v *T, cb WriteCallback) *dispatch.Future[*storagemodels.UpdateResult] {
	return tc.Collection.SaveAsync(v, cb)
}

func (tc *TypedCollection[T]) Load(ctx context.Context, v *T) error {
	return tc.Collection.Load(ctx, v)
}

func (tc *TypedCollection[T]) LoadAsync(v *T, cb LoadedCallback) *dispatch.Future[struct{}] {
	return tc.Collection.LoadAsync(v, cb)
}

func (tc *TypedCollection[T]) LoadAll(ctx context.Context) ([]*T, error) {
	return LoadAll[T](ctx, tc.Collection)
}

func (tc *TypedCollection[T]) LoadAllAsync(cb func([]*T, error)) *dispatch.Future[[]*T] {
	return LoadAllAsync[T](tc.Collection, cb)
}

// Get decodes the first document matching f into a new T.
func (tc *TypedCollection[T]) Get(ctx context.Context, f query.Filter) (*T, error) {
	doc, err := tc.Collection.FindOne(ctx, f)
	if err != nil {
		return nil, err
	}
	return mapping.DecodeNew[T](tc.engine, doc)
}

func (tc *TypedCollection[T]) GetAsync(f query.Filter, cb func(*T, error)) *dispatch.Future[*T] {
	return dispatch.Run(tc.sched, dispatch.LaneRead, func(ctx context.Context) (*T, error) {
		return tc.Get(ctx, f)
	}).OnComplete(cb)
}

// List decodes every document matching f. Decode failures are handled as in
// LoadAll.
func (tc *TypedCollection[T]) List(ctx context.Context, f query.Filter, opts ...storagemodels.FindOption) ([]*T, error) {
	docs, err := tc.Collection.Find(ctx, f, opts...)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](tc.engine, docs)
}

func (tc *TypedCollection[T]) ListAsync(f query.Filter, cb func([]*T, error)) *dispatch.Future[[]*T] {
	return dispatch.Run(tc.sched, dispatch.LaneRead, func(ctx context.Context) ([]*T, error) {
		return tc.List(ctx, f)
	}).OnComplete(cb)
}
