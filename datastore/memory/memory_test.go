/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/suparena/modelsync/datastore"
	"github.com/suparena/modelsync/datastore/memory"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// compile-time interface checks
var (
	_ datastore.Database   = (*memory.Database)(nil)
	_ datastore.Collection = (*memory.Collection)(nil)
)

func seeded(t *testing.T) *memory.Collection {
	t.Helper()
	c := memory.NewCollection("users")
	c.SetData(
		document.New("_id", "a", "id", 1, "name", "One", "age", 20),
		document.New("_id", "b", "id", 2, "name", "Two", "age", 30),
		document.New("_id", "c", "id", 3, "name", "Three", "age", 40),
	)
	return c
}

func TestMemoryCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("InsertAssignsID", func(t *testing.T) {
		c := memory.NewCollection("users")
		doc := document.New("id", 1, "name", "Ada")
		if err := c.InsertOne(ctx, doc); err != nil {
			t.Fatalf("InsertOne failed: %v", err)
		}
		if doc.Has("_id") {
			t.Fatal("InsertOne must not modify the input document")
		}
		stored := c.GetData()[0]
		if stored.Keys()[0] != "_id" {
			t.Fatalf("expected _id first, got keys %v", stored.Keys())
		}

		dup := document.New("_id", mustGet(t, stored, "_id"), "id", 2)
		if err := c.InsertOne(ctx, dup); !errors.IsAlreadyExists(err) {
			t.Fatalf("expected already exists error, got %v", err)
		}
	})

	t.Run("FindInOrder", func(t *testing.T) {
		c := seeded(t)
		cur, err := c.Find(ctx, query.Gte("age", 30))
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		docs, err := datastore.All(ctx, cur)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
		if mustGet(t, docs[0], "name") != "Two" || mustGet(t, docs[1], "name") != "Three" {
			t.Fatalf("unexpected order: %v", docs)
		}

		// returned documents are copies
		docs[0].Set("name", "changed")
		if mustGet(t, c.GetData()[1], "name") != "Two" {
			t.Fatal("Find leaked stored document")
		}
	})

	t.Run("FindOptions", func(t *testing.T) {
		c := seeded(t)
		cur, _ := c.Find(ctx, query.All(), storagemodels.WithSkip(1), storagemodels.WithLimit(1))
		docs, _ := datastore.All(ctx, cur)
		if len(docs) != 1 || mustGet(t, docs[0], "id") != 2 {
			t.Fatalf("unexpected page: %v", docs)
		}
	})

	t.Run("EmptyFindReturnsEmptySlice", func(t *testing.T) {
		c := memory.NewCollection("empty")
		cur, _ := c.Find(ctx, query.All())
		docs, err := datastore.All(ctx, cur)
		if err != nil || docs == nil || len(docs) != 0 {
			t.Fatalf("expected empty non-nil slice, got %v, %v", docs, err)
		}
	})

	t.Run("UpdateOneAndMany", func(t *testing.T) {
		c := seeded(t)
		res, err := c.UpdateOne(ctx, query.Gte("age", 20), query.Inc("age", 1), storagemodels.UpdateOptions{})
		if err != nil {
			t.Fatalf("UpdateOne failed: %v", err)
		}
		if res.MatchedCount != 1 || res.ModifiedCount != 1 {
			t.Fatalf("unexpected result %+v", res)
		}

		res, err = c.UpdateMany(ctx, query.All(), query.Set("team", "core"), storagemodels.UpdateOptions{})
		if err != nil {
			t.Fatalf("UpdateMany failed: %v", err)
		}
		if res.MatchedCount != 3 || res.ModifiedCount != 3 {
			t.Fatalf("unexpected result %+v", res)
		}

		res, _ = c.UpdateMany(ctx, query.All(), query.Set("team", "core"), storagemodels.UpdateOptions{})
		if res.ModifiedCount != 0 {
			t.Fatalf("no-op update reported %d modified", res.ModifiedCount)
		}
	})

	t.Run("FailedUpdateLeavesDataUntouched", func(t *testing.T) {
		c := seeded(t)
		_, err := c.UpdateMany(ctx, query.All(), query.Set("x", 1).Inc("name", 1), storagemodels.UpdateOptions{})
		if err == nil {
			t.Fatal("expected error incrementing a string")
		}
		for _, d := range c.GetData() {
			if d.Has("x") {
				t.Fatal("partial update was committed")
			}
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		c := memory.NewCollection("users")
		opts := storagemodels.UpdateOptions{Upsert: true}

		res, err := c.ReplaceOne(ctx, query.Eq("id", 1), document.New("id", 1, "name", "a"), opts)
		if err != nil {
			t.Fatalf("ReplaceOne failed: %v", err)
		}
		if res.UpsertedCount != 1 || res.UpsertedID == nil {
			t.Fatalf("expected upsert, got %+v", res)
		}

		res, err = c.ReplaceOne(ctx, query.Eq("id", 1), document.New("id", 1, "name", "b"), opts)
		if err != nil {
			t.Fatalf("ReplaceOne failed: %v", err)
		}
		if res.MatchedCount != 1 || res.UpsertedCount != 0 {
			t.Fatalf("expected replace, got %+v", res)
		}

		data := c.GetData()
		if len(data) != 1 || mustGet(t, data[0], "name") != "b" {
			t.Fatalf("expected one document named b, got %v", data)
		}

		_, err = c.UpdateOne(ctx, query.Eq("id", 2), query.Set("name", "seeded"), opts)
		if err != nil {
			t.Fatalf("UpdateOne upsert failed: %v", err)
		}
		n, _ := c.Count(ctx, query.And(query.Eq("id", 2), query.Eq("name", "seeded")))
		if n != 1 {
			t.Fatalf("upsert did not seed from filter, count=%d", n)
		}
	})

	t.Run("FindOneAndUpdate", func(t *testing.T) {
		c := seeded(t)
		before, err := c.FindOneAndUpdate(ctx, query.Eq("id", 2), query.Set("name", "Deux"))
		if err != nil {
			t.Fatalf("FindOneAndUpdate failed: %v", err)
		}
		if mustGet(t, before, "name") != "Two" {
			t.Fatalf("expected pre-update document, got %v", before)
		}
		if mustGet(t, c.GetData()[1], "name") != "Deux" {
			t.Fatal("update was not applied")
		}

		_, err = c.FindOneAndUpdate(ctx, query.Eq("id", 9), query.Set("name", "x"))
		if !errors.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("FindOneAndDeleteAndDeleteMany", func(t *testing.T) {
		c := seeded(t)
		removed, err := c.FindOneAndDelete(ctx, query.Eq("id", 1))
		if err != nil {
			t.Fatalf("FindOneAndDelete failed: %v", err)
		}
		if mustGet(t, removed, "name") != "One" || c.Len() != 2 {
			t.Fatalf("unexpected state after delete: %v, len %d", removed, c.Len())
		}
		if _, err := c.FindOneAndDelete(ctx, query.Eq("id", 1)); !errors.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}

		res, err := c.DeleteMany(ctx, query.All())
		if err != nil || res.DeletedCount != 2 || c.Len() != 0 {
			t.Fatalf("DeleteMany: %+v, %v, len %d", res, err, c.Len())
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		c := seeded(t)

		insertErr := errors.NewValidationError("name", "required")
		c.WithInsertError(insertErr)
		if err := c.InsertOne(ctx, document.New()); err != insertErr {
			t.Fatalf("Expected insert error, got: %v", err)
		}

		updateErr := errors.NewConditionFailedError("update", "version mismatch")
		c.WithUpdateError(updateErr)
		if _, err := c.UpdateOne(ctx, query.All(), query.Set("a", 1), storagemodels.UpdateOptions{}); err != updateErr {
			t.Fatalf("Expected update error, got: %v", err)
		}

		deleteErr := errors.NewConditionFailedError("delete", "locked")
		c.WithDeleteError(deleteErr)
		if _, err := c.DeleteMany(ctx, query.All()); err != deleteErr {
			t.Fatalf("Expected delete error, got: %v", err)
		}

		findErr := errors.NewConditionFailedError("find", "offline")
		c.WithFindError(findErr)
		if _, err := c.Find(ctx, query.All()); err != findErr {
			t.Fatalf("Expected find error, got: %v", err)
		}
		if c.Len() != 3 {
			t.Fatalf("injected errors must not change data, len %d", c.Len())
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		c := memory.NewCollection("users")
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				_ = c.InsertOne(ctx, document.New("id", i))
			}(i)
			go func() {
				defer wg.Done()
				_, _ = c.Count(ctx, query.All())
			}()
		}
		wg.Wait()
		if c.Len() != 50 {
			t.Fatalf("expected 50 documents, got %d", c.Len())
		}
	})
}

func TestUpsertKeepsLargeIntegerKeysApart(t *testing.T) {
	ctx := context.Background()
	c := memory.NewCollection("users")
	first, second := int64(1)<<53, int64(1)<<53+1
	opts := storagemodels.UpdateOptions{Upsert: true}

	if _, err := c.ReplaceOne(ctx, query.Eq("id", first), document.New("id", first, "name", "first"), opts); err != nil {
		t.Fatal(err)
	}
	res, err := c.ReplaceOne(ctx, query.Eq("id", second), document.New("id", second, "name", "second"), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.MatchedCount != 0 || res.UpsertedCount != 1 {
		t.Errorf("Expected a second upsert, got %+v", res)
	}
	if c.Len() != 2 {
		t.Fatalf("Expected 2 documents, got %d", c.Len())
	}

	cur, err := c.Find(ctx, query.Eq("id", first))
	if err != nil {
		t.Fatal(err)
	}
	docs, err := datastore.All(ctx, cur)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected exactly one match for %d, got %d", first, len(docs))
	}
	if name, _ := docs[0].Get("name"); name != "first" {
		t.Errorf("Expected the first record to survive, got %v", name)
	}

	n, err := c.Count(ctx, query.Gt("id", first))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected one id above %d, got %d", first, n)
	}
}

func TestMemoryDatabase(t *testing.T) {
	db := memory.NewDatabase()
	a := db.Collection("a")
	if db.Collection("a") != a {
		t.Fatal("expected the same collection for the same name")
	}
	if a.Name() != "a" {
		t.Fatalf("unexpected name %q", a.Name())
	}
	if err := db.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func mustGet(t *testing.T, d *document.Document, key string) any {
	t.Helper()
	v, ok := d.Get(key)
	if !ok {
		t.Fatalf("key %q missing from %v", key, d)
	}
	return v
}
