/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/modelsync"
	"github.com/suparena/modelsync/config"
	"github.com/suparena/modelsync/datastore/memory"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
)

// keepOpen survives the Close each command issues so state carries across runs.
type keepOpen struct{ *memory.Database }

func (keepOpen) Close(context.Context) error { return nil }

func run(t *testing.T, db *memory.Database, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MODELSYNC_BACKEND", "memory")

	var out bytes.Buffer
	root := newRootCmd(&out, func(_ context.Context, cfg config.Config) (*modelsync.Client, error) {
		assert.Equal(t, config.BackendMemory, cfg.Backend)
		return modelsync.NewClient(keepOpen{db}), nil
	})
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	return out.String(), err
}

func seed(db *memory.Database) {
	db.Get("users").SetData(
		document.New("_id", "a", "id", int64(1), "name", "Ada", "age", int64(36)),
		document.New("_id", "b", "id", int64(2), "name", "Bob", "age", int64(17)),
		document.New("_id", "c", "id", int64(3), "name", "Cy", "age", int64(52)),
	)
}

func TestVersionCommand(t *testing.T) {
	var opened bool
	var out bytes.Buffer
	root := newRootCmd(&out, func(context.Context, config.Config) (*modelsync.Client, error) {
		opened = true
		return nil, nil
	})
	root.SetArgs([]string{"version", "-o", "yaml"})
	require.NoError(t, root.Execute())

	assert.False(t, opened, "version must not connect")
	assert.Contains(t, out.String(), "version: "+modelsync.Version)
	assert.Contains(t, out.String(), "goVersion:")
}

func TestTypesCommand(t *testing.T) {
	out, err := run(t, memory.NewDatabase(), "", "types")
	require.NoError(t, err)
	assert.Contains(t, out, "users\n")
	assert.Contains(t, out, "ratingsystems\n")
}

func TestFindCommands(t *testing.T) {
	db := memory.NewDatabase()
	seed(db)

	t.Run("find with filter", func(t *testing.T) {
		out, err := run(t, db, "", "find", "users", `{"age":{"$gte":18}}`)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, `{"_id":"a","id":1,"name":"Ada","age":36}`, lines[0])
	})

	t.Run("find paging", func(t *testing.T) {
		out, err := run(t, db, "", "find", "users", "--skip", "1", "--limit", "1")
		require.NoError(t, err)
		assert.Equal(t, `{"_id":"b","id":2,"name":"Bob","age":17}`+"\n", out)
	})

	t.Run("find-one yaml", func(t *testing.T) {
		out, err := run(t, db, "", "find-one", "users", `{"name":"Cy"}`, "-o", "yaml")
		require.NoError(t, err)
		assert.Equal(t, "_id: c\nid: 3\nname: Cy\nage: 52\n", out)
	})

	t.Run("find-one not found", func(t *testing.T) {
		_, err := run(t, db, "", "find-one", "users", `{"name":"Zed"}`)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("count", func(t *testing.T) {
		out, err := run(t, db, "", "count", "users", `{"age":{"$lt":40}}`)
		require.NoError(t, err)
		assert.Equal(t, "2\n", out)
	})

	t.Run("bad filter", func(t *testing.T) {
		_, err := run(t, db, "", "find", "users", `{"age":{"$regex":"1"}}`)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestWriteCommands(t *testing.T) {
	db := memory.NewDatabase()
	seed(db)

	t.Run("insert from stdin", func(t *testing.T) {
		out, err := run(t, db, `{"_id":"d","id":4,"name":"Dee"}`, "insert", "users")
		require.NoError(t, err)
		assert.Equal(t, "inserted 1 document\n", out)
		assert.Equal(t, 4, db.Get("users").Len())
	})

	t.Run("update", func(t *testing.T) {
		out, err := run(t, db, "", "update", "users", `{"id":2}`, `{"$inc":{"age":1}}`)
		require.NoError(t, err)
		assert.Equal(t, "matched 1, modified 1\n", out)

		out, err = run(t, db, "", "find-one", "users", `{"id":2}`)
		require.NoError(t, err)
		assert.Contains(t, out, `"age":18`)
	})

	t.Run("upsert", func(t *testing.T) {
		out, err := run(t, db, "", "update", "users", `{"id":9}`, `{"$set":{"name":"Nia"}}`, "--upsert")
		require.NoError(t, err)
		assert.Contains(t, out, "matched 0, modified 0, upserted")
	})

	t.Run("remove requires confirmation", func(t *testing.T) {
		_, err := run(t, db, "", "remove", "users")
		assert.True(t, errors.IsValidationError(err))
		assert.Equal(t, 5, db.Get("users").Len())
	})

	t.Run("remove", func(t *testing.T) {
		out, err := run(t, db, "", "remove", "users", `{"age":{"$gte":50}}`)
		require.NoError(t, err)
		assert.Equal(t, "deleted 1\n", out)

		out, err = run(t, db, "", "remove", "users", "--all")
		require.NoError(t, err)
		assert.Equal(t, "deleted 4\n", out)
	})
}

func TestLoadAllCommand(t *testing.T) {
	db := memory.NewDatabase()
	db.Get("users").SetData(
		document.New("id", int64(1), "name", "Ada", "age", int64(36)),
		document.New("id", int64(2), "name", "Bob", "age", "old"),
	)

	out, err := run(t, db, "", "load-all", "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed to decode")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"name":"Ada"`)

	_, err = run(t, db, "", "load-all", "nope")
	assert.Error(t, err)
}

func TestWrapString(t *testing.T) {
	s := wrapString("one two three four five six seven eight nine ten eleven twelve thirteen")
	for _, line := range strings.Split(s, "\n") {
		assert.LessOrEqual(t, len(line), wrap)
	}
	assert.Equal(t, "short text", wrapString("short   text"))
}
