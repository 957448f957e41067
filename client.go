/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package modelsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/suparena/modelsync/config"
	"github.com/suparena/modelsync/datastore"
	"github.com/suparena/modelsync/datastore/ddb"
	"github.com/suparena/modelsync/datastore/memory"
	"github.com/suparena/modelsync/datastore/mongo"
	"github.com/suparena/modelsync/dispatch"
	"github.com/suparena/modelsync/mapping"
)

// Client owns a database connection, the dispatch scheduler shared by all of
// its collections and the mapping engine. It is safe for concurrent use.
type Client struct {
	db           datastore.Database
	engine       *mapping.Engine
	sched        *dispatch.Scheduler
	logger       *slog.Logger
	closeTimeout time.Duration

	mu          sync.RWMutex
	collections map[string]*Collection
	closed      bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger shared by the client, its scheduler and engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEngine replaces the default mapping engine.
func WithEngine(e *mapping.Engine) Option {
	return func(c *Client) {
		c.engine = e
	}
}

// WithScheduler replaces the default scheduler. The client closes it on Close.
func WithScheduler(s *dispatch.Scheduler) Option {
	return func(c *Client) {
		c.sched = s
	}
}

// WithCloseTimeout bounds Close when its context has no deadline.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.closeTimeout = d
		}
	}
}

// NewClient wraps an existing database.
func NewClient(db datastore.Database, opts ...Option) *Client {
	c := &Client{
		db:           db,
		logger:       slog.Default(),
		closeTimeout: 30 * time.Second,
		collections:  make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = mapping.NewEngine(mapping.WithLogger(c.logger))
	}
	if c.sched == nil {
		c.sched = dispatch.New(dispatch.WithLogger(c.logger))
	}
	return c
}

// Open connects to the backend selected by cfg.
func Open(ctx context.Context, cfg config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	var db datastore.Database
	switch cfg.Backend {
	case config.BackendMemory:
		db = memory.NewDatabase()
	case config.BackendMongo:
		db, err = mongo.New(ctx, mongo.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		}, logger)
	case config.BackendDynamoDB:
		db, err = ddb.New(ctx, ddb.Config{
			Region:         cfg.DynamoDB.Region,
			AccessKey:      cfg.DynamoDB.AccessKey,
			SecretKey:      cfg.DynamoDB.SecretKey,
			Endpoint:       cfg.DynamoDB.Endpoint,
			TablePrefix:    cfg.DynamoDB.TablePrefix,
			KeyAttribute:   cfg.DynamoDB.KeyAttribute,
			ConsistentRead: cfg.DynamoDB.ConsistentRead,
		}, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.Backend, err)
	}

	sched := dispatch.New(
		dispatch.WithLogger(logger),
		dispatch.WithMetricsPrefix(cfg.Dispatch.MetricsPrefix),
	)
	logger.Info("modelsync client opened", "backend", cfg.Backend, "version", Version)
	return NewClient(db,
		WithLogger(logger),
		WithScheduler(sched),
		WithCloseTimeout(cfg.Dispatch.CloseTimeout),
	), nil
}

// Collection returns the facade for name, creating it on first use.
func (c *Client) Collection(name string) *Collection {
	c.mu.RLock()
	coll, ok := c.collections[name]
	c.mu.RUnlock()
	if ok {
		return coll
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if coll, ok := c.collections[name]; ok {
		return coll
	}
	coll = NewCollection(c.db.Collection(name), c.engine, c.sched, c.logger)
	c.collections[name] = coll
	return coll
}

// CollectionNames lists the collections handed out so far.
func (c *Client) CollectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.collections))
	for k := range c.collections {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Client) Engine() *mapping.Engine { return c.engine }

func (c *Client) Scheduler() *dispatch.Scheduler { return c.sched }

func (c *Client) Database() datastore.Database { return c.db }

// Close waits for queued work to finish, then closes the database. Only the
// first call has an effect.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.closeTimeout)
		defer cancel()
	}

	var errs []error
	if err := c.sched.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain scheduler: %w", err))
	}
	if err := c.db.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return stderrors.Join(errs...)
}
