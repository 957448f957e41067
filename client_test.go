/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package modelsync

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/modelsync/config"
	"github.com/suparena/modelsync/datastore/memory"
	"github.com/suparena/modelsync/datastore/testmodels"
	"github.com/suparena/modelsync/document"
	"github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

func TestClientCollections(t *testing.T) {
	client, _ := newTestClient(t)

	t.Run("cached per name", func(t *testing.T) {
		a := client.Collection("users")
		b := client.Collection("users")
		assert.Same(t, a, b)
		assert.Equal(t, "users", a.Name())
	})

	t.Run("names", func(t *testing.T) {
		client.Collection("orders")
		assert.Equal(t, []string{"orders", "users"}, client.CollectionNames())
	})
}

func TestClientThreadSafety(t *testing.T) {
	client, _ := newTestClient(t)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			client.Collection(fmt.Sprintf("coll%d", id))
		}(i)
		go func() {
			defer wg.Done()
			client.CollectionNames()
		}()
	}
	wg.Wait()

	assert.Len(t, client.CollectionNames(), 10)
}

func TestClientClose(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDatabase()
	client := NewClient(db, WithCloseTimeout(time.Second))
	items := client.Collection("items")

	var futures []func() error
	for i := 0; i < 50; i++ {
		f := items.InsertAsync(document.New("i", i), nil)
		futures = append(futures, func() error { _, err := f.Result(); return err })
	}
	require.NoError(t, client.Close(ctx))

	for _, result := range futures {
		assert.NoError(t, result(), "queued work must finish before Close returns")
	}

	t.Run("idempotent", func(t *testing.T) {
		assert.NoError(t, client.Close(ctx))
	})

	t.Run("rejects new work", func(t *testing.T) {
		fired := make(chan error, 1)
		items.RemoveAsync(query.All(), func(_ *storagemodels.DeleteResult, err error) { fired <- err })
		assert.ErrorIs(t, <-fired, errors.ErrSchedulerClosed)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	client, err := Open(ctx, config.Default())
	require.NoError(t, err)
	defer client.Close(ctx)

	users, err := Typed[testmodels.User](client, "users")
	require.NoError(t, err)
	_, err = users.Save(ctx, sampleUser(1, "ada"))
	require.NoError(t, err)

	var buf bytes.Buffer
	client.Scheduler().WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `modelsync_dispatch_completed_total{lane="write"}`)

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Backend = "cassandra"
		_, err := Open(ctx, cfg)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
