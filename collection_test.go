/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package modelsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/modelsync/datastore/memory"
	"github.com/suparena/modelsync/datastore/testmodels"
	"github.com/suparena/modelsync/dispatch"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func newTestClient(t *testing.T) (*Client, *memory.Database) {
	t.Helper()
	db := memory.NewDatabase()
	c := NewClient(db)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, db
}

// outcome is what one callback invocation delivered.
type outcome[T any] struct {
	val T
	err error
}

// capture returns a callback that records every invocation.
func capture[T any]() (func(T, error), chan outcome[T]) {
	ch := make(chan outcome[T], 4)
	return func(v T, err error) { ch <- outcome[T]{v, err} }, ch
}

// once waits for exactly one invocation.
func once[T any](t *testing.T, ch chan outcome[T]) outcome[T] {
	t.Helper()
	var got outcome[T]
	select {
	case got = <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("callback did not fire")
	}
	select {
	case extra := <-ch:
		t.Fatalf("callback fired twice, second with %v", extra)
	case <-time.After(20 * time.Millisecond):
	}
	return got
}

func sampleUser(id int, name string) *testmodels.User {
	created := strfmt.DateTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	return &testmodels.User{
		Audit:   testmodels.Audit{CreatedAt: created, UpdatedAt: created},
		ID:      intp(id),
		Name:    name,
		Email:   strfmt.Email(name + "@example.com"),
		Age:     30,
		Tags:    []string{"a", "b"},
		Profile: &testmodels.Profile{UID: intp(id * 10), Nickname: strp(name)},
		Friends: []*testmodels.Profile{{UID: intp(2)}, {UID: intp(3)}},
		Meta:    map[string]string{"team": "core"},
		Session: "not persisted",
	}
}

func TestSaveUpsertsByIndex(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	users := client.Collection("users")

	_, err := users.Save(ctx, sampleUser(1, "a"))
	require.NoError(t, err)
	res, err := users.Save(ctx, sampleUser(1, "b"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)

	stored := db.Get("users").GetData()
	require.Len(t, stored, 1)
	id, _ := stored[0].Get("id")
	name, _ := stored[0].Get("name")
	assert.Equal(t, 1, id)
	assert.Equal(t, "b", name)
	assert.False(t, stored[0].Has("Session"))
}

func TestSaveRequiresIndex(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	notes := client.Collection("notes")

	t.Run("no index field", func(t *testing.T) {
		_, err := notes.Save(ctx, &testmodels.Note{Text: "x"})
		assert.ErrorIs(t, err, errors.ErrNoIndex)

		cb, ch := capture[*storagemodels.UpdateResult]()
		f := notes.SaveAsync(&testmodels.Note{Text: "x"}, cb)
		got := once(t, ch)
		assert.Nil(t, got.val)
		assert.ErrorIs(t, got.err, errors.ErrNoIndex)
		_, err = f.Result()
		assert.ErrorIs(t, err, errors.ErrNoIndex)
	})

	t.Run("unset index value", func(t *testing.T) {
		_, err := client.Collection("users").Save(ctx, &testmodels.User{Name: "anon"})
		assert.ErrorIs(t, err, errors.ErrNoIndexValue)
	})

	assert.Zero(t, db.Get("notes").Calls())
	assert.Zero(t, db.Get("users").Calls())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	users := client.Collection("users")

	want := sampleUser(7, "ada")
	_, err := users.Save(ctx, want)
	require.NoError(t, err)

	stored := db.Get("users").GetData()[0]
	profile, ok := stored.Get("profile")
	require.True(t, ok)
	uid, _ := profile.(*document.Document).Get("uid")
	assert.Equal(t, 70, uid)

	got := &testmodels.User{ID: intp(7), Session: "kept"}
	require.NoError(t, users.Load(ctx, got))

	want.Session = "kept"
	assert.Equal(t, want, got)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	users := client.Collection("users")

	t.Run("not found", func(t *testing.T) {
		err := users.Load(ctx, &testmodels.User{ID: intp(99)})
		assert.True(t, errors.IsNotFound(err))

		ch := make(chan error, 2)
		users.LoadAsync(&testmodels.User{ID: intp(99)}, func(err error) { ch <- err })
		select {
		case err := <-ch:
			var nf *errors.NotFoundError
			assert.ErrorAs(t, err, &nf)
		case <-time.After(2 * time.Second):
			t.Fatal("load callback did not fire")
		}
	})

	t.Run("no index value fires immediately", func(t *testing.T) {
		calls := db.Get("users").Calls()
		fired := false
		f := users.LoadAsync(&testmodels.User{Name: "x"}, func(err error) {
			fired = true
			assert.ErrorIs(t, err, errors.ErrNoIndexValue)
		})
		assert.True(t, fired)
		_, err := f.Result()
		assert.NotErrorIs(t, err, dispatch.ErrPending)
		assert.Equal(t, calls, db.Get("users").Calls())
	})

	t.Run("partial decode", func(t *testing.T) {
		db.Get("users").SetData(document.New("id", 5, "name", "bob", "age", "old"))

		u := &testmodels.User{ID: intp(5), Age: 12}
		err := users.Load(ctx, u)
		require.Error(t, err)
		assert.True(t, errors.IsDecodeError(err))
		assert.Equal(t, "bob", u.Name)
		assert.Equal(t, 12, u.Age)

		var de *errors.DecodeError
		require.ErrorAs(t, err, &de)
		require.Len(t, de.Fields, 1)
		assert.Equal(t, "age", de.Fields[0].Path)
	})

	t.Run("async success", func(t *testing.T) {
		db.Get("users").SetData(document.New("id", 6, "name", "eve"))
		u := &testmodels.User{ID: intp(6)}
		_, err := users.LoadAsync(u, nil).Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, "eve", u.Name)
	})
}

func TestLoadAll(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	users := client.Collection("users")

	t.Run("empty collection", func(t *testing.T) {
		all, err := LoadAll[testmodels.User](ctx, users)
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		cb, ch := capture[[]*testmodels.User]()
		LoadAllAsync[testmodels.User](users, cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.NotNil(t, got.val)
		assert.Empty(t, got.val)
	})

	t.Run("decodes every document", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			_, err := users.Save(ctx, sampleUser(i, fmt.Sprintf("u%d", i)))
			require.NoError(t, err)
		}
		all, err := LoadAll[testmodels.User](ctx, users)
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, u := range all {
			assert.Equal(t, i+1, *u.ID)
			assert.Equal(t, (i+1)*10, *u.Profile.UID)
			assert.Equal(t, 2, *u.Friends[0].UID)
		}
	})

	t.Run("partial failures are joined", func(t *testing.T) {
		db.Get("users").SetData(
			document.New("id", 1, "name", "ok"),
			document.New("id", 2, "age", true),
		)
		all, err := LoadAll[testmodels.User](ctx, users)
		require.Len(t, all, 2)
		assert.True(t, errors.IsDecodeError(err))
		assert.Equal(t, "ok", all[0].Name)
	})
}

func TestCollectionOperations(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	people := client.Collection("people")

	for i, name := range []string{"ann", "bob", "cid"} {
		require.NoError(t, people.Insert(ctx, document.New("name", name, "age", 20+i)))
	}

	t.Run("find one", func(t *testing.T) {
		doc, err := people.FindOne(ctx, query.Gt("age", 20))
		require.NoError(t, err)
		name, _ := doc.Get("name")
		assert.Equal(t, "bob", name)

		_, err = people.FindOne(ctx, query.Eq("name", "zed"))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("find keeps order", func(t *testing.T) {
		docs, err := people.Find(ctx, query.All())
		require.NoError(t, err)
		var names []any
		for _, d := range docs {
			n, _ := d.Get("name")
			names = append(names, n)
		}
		assert.Equal(t, []any{"ann", "bob", "cid"}, names)
	})

	t.Run("update without upsert", func(t *testing.T) {
		res, err := people.Update(ctx, query.Eq("name", "zed"), query.Set("age", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.MatchedCount)
		assert.Equal(t, int64(0), res.UpsertedCount)
	})

	t.Run("update many and upsert", func(t *testing.T) {
		res, err := people.UpdateWithOptions(ctx, query.Gte("age", 20), query.Inc("age", 10), false, true)
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.ModifiedCount)

		res, err = people.UpdateWithOptions(ctx, query.Eq("name", "dee"), query.Set("age", 5), true, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.UpsertedCount)
	})

	t.Run("find and update returns previous", func(t *testing.T) {
		prev, err := people.FindAndUpdate(ctx, query.Eq("name", "ann"), query.Set("age", 99))
		require.NoError(t, err)
		age, _ := prev.Get("age")
		assert.Equal(t, int64(30), age)

		_, err = people.FindAndUpdate(ctx, query.Eq("name", "zed"), query.Set("age", 1))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("find and remove", func(t *testing.T) {
		removed, err := people.FindAndRemove(ctx, query.Eq("name", "dee"))
		require.NoError(t, err)
		name, _ := removed.Get("name")
		assert.Equal(t, "dee", name)
	})

	t.Run("count and remove", func(t *testing.T) {
		n, err := people.Count(ctx, query.All())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		res, err := people.Remove(ctx, query.Ne("name", "ann"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.DeletedCount)
		assert.Equal(t, 1, db.Get("people").Len())
	})

	t.Run("update or insert", func(t *testing.T) {
		res, err := people.UpdateOrInsert(ctx, "name", "eli", document.New("name", "eli", "age", 40))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.UpsertedCount)

		res, err = people.UpdateOrInsert(ctx, "name", "eli", document.New("name", "eli", "age", 41))
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, 2, db.Get("people").Len())
	})
}

func TestAsyncCallbacksFireExactlyOnce(t *testing.T) {
	client, db := newTestClient(t)
	items := client.Collection("items")
	require.NoError(t, items.Insert(context.Background(), document.New("_id", "k1", "n", 1)))

	t.Run("insert echoes document", func(t *testing.T) {
		cb, ch := capture[*document.Document]()
		doc := document.New("_id", "k2", "n", 2)
		items.InsertAsync(doc, cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.Same(t, doc, got.val)
	})

	t.Run("insert duplicate", func(t *testing.T) {
		cb, ch := capture[*document.Document]()
		items.InsertAsync(document.New("_id", "k1"), cb)
		got := once(t, ch)
		assert.Nil(t, got.val)
		assert.True(t, errors.IsAlreadyExists(got.err))
	})

	t.Run("update", func(t *testing.T) {
		cb, ch := capture[*storagemodels.UpdateResult]()
		items.UpdateAsync(query.Eq("_id", "k1"), query.Inc("n", 1), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.Equal(t, int64(1), got.val.ModifiedCount)
	})

	t.Run("update or insert", func(t *testing.T) {
		cb, ch := capture[*storagemodels.UpdateResult]()
		items.UpdateOrInsertAsync("_id", "k3", document.New("n", 3), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.Equal(t, "k3", got.val.UpsertedID)
	})

	t.Run("find one missing", func(t *testing.T) {
		cb, ch := capture[*document.Document]()
		items.FindOneAsync(query.Eq("_id", "nope"), cb)
		got := once(t, ch)
		assert.Nil(t, got.val)
		assert.True(t, errors.IsNotFound(got.err))
	})

	t.Run("find", func(t *testing.T) {
		cb, ch := capture[[]*document.Document]()
		items.FindAsync(query.All(), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.Len(t, got.val, 3)
	})

	t.Run("find and update", func(t *testing.T) {
		cb, ch := capture[*document.Document]()
		items.FindAndUpdateAsync(query.Eq("_id", "k1"), query.Set("n", 0), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		n, _ := got.val.Get("n")
		assert.Equal(t, int64(2), n)
	})

	t.Run("find and remove", func(t *testing.T) {
		cb, ch := capture[*document.Document]()
		items.FindAndRemoveAsync(query.Eq("_id", "k3"), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		require.NotNil(t, got.val)
	})

	t.Run("remove", func(t *testing.T) {
		cb, ch := capture[*storagemodels.DeleteResult]()
		items.RemoveAsync(query.Eq("_id", "k2"), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.Equal(t, int64(1), got.val.DeletedCount)
	})

	t.Run("count", func(t *testing.T) {
		cb, ch := capture[int64]()
		items.CountAsync(query.All(), cb)
		got := once(t, ch)
		require.NoError(t, got.err)
		assert.Equal(t, int64(1), got.val)
	})

	t.Run("store failure", func(t *testing.T) {
		boom := stderrors.New("connection reset")
		db.Get("items").WithFindError(boom)
		defer db.Get("items").WithFindError(nil)

		cb, ch := capture[[]*document.Document]()
		items.FindAsync(query.All(), cb)
		got := once(t, ch)
		assert.Nil(t, got.val)
		assert.ErrorIs(t, got.err, boom)
	})
}

func TestWriteLaneOrdering(t *testing.T) {
	ctx := context.Background()
	client, db := newTestClient(t)
	seq := client.Collection("seq")

	const n = 200
	var last *dispatch.Future[*document.Document]
	for i := 0; i < n; i++ {
		last = seq.InsertAsync(document.New("i", i), nil)
	}
	_, err := last.Await(ctx)
	require.NoError(t, err)

	docs := db.Get("seq").GetData()
	require.Len(t, docs, n)
	for i, d := range docs {
		v, _ := d.Get("i")
		require.Equal(t, i, v)
	}

	t.Run("last save wins", func(t *testing.T) {
		users := client.Collection("users")
		var f *dispatch.Future[*storagemodels.UpdateResult]
		for i := 0; i < 50; i++ {
			f = users.SaveAsync(sampleUser(1, fmt.Sprintf("v%d", i)), nil)
		}
		_, err := f.Await(ctx)
		require.NoError(t, err)

		u := &testmodels.User{ID: intp(1)}
		require.NoError(t, users.Load(ctx, u))
		assert.Equal(t, "v49", u.Name)
		assert.Equal(t, 1, db.Get("users").Len())
	})
}
