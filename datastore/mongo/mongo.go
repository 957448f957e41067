/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/suparena/modelsync/datastore"
	"github.com/suparena/modelsync/document"
	mserrors "github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config describes the MongoDB deployment to connect to.
type Config struct {
	URI      string
	Database string
	// ConnectTimeout bounds the initial connection and ping (default 10s).
	ConnectTimeout time.Duration
}

// Database is a datastore.Database backed by one MongoDB database.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Database, error) {
	if cfg.URI == "" {
		return nil, mserrors.NewValidationError("uri", "must not be empty")
	}
	if cfg.Database == "" {
		return nil, mserrors.NewValidationError("database", "must not be empty")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("MongoDB client initialized", "database", cfg.Database)
	return &Database{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

func (d *Database) Collection(name string) datastore.Collection {
	return &Collection{coll: d.db.Collection(name), logger: d.logger.With("collection", name)}
}

func (d *Database) Close(ctx context.Context) error {
	if err := d.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// Collection implements datastore.Collection on a MongoDB collection.
type Collection struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) InsertOne(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return mserrors.NewValidationError("document", "must not be nil")
	}
	if _, err := c.coll.InsertOne(ctx, toBSON(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			id, _ := doc.Get("_id")
			return mserrors.NewAlreadyExistsError(c.Name(), fmt.Sprint(id))
		}
		return fmt.Errorf("mongo: insert into %s: %w", c.Name(), err)
	}
	return nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	if update.IsReplacement() {
		return c.ReplaceOne(ctx, filter, update.Replacement(), opts)
	}
	if update.IsEmpty() {
		return nil, mserrors.NewValidationError("update", "no updates provided")
	}
	res, err := c.coll.UpdateOne(ctx, toBSON(filter.Doc()), toBSON(update.Doc()), options.Update().SetUpsert(opts.Upsert))
	if err != nil {
		return nil, fmt.Errorf("mongo: update %s: %w", c.Name(), err)
	}
	return updateResult(res), nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	if update.IsReplacement() {
		return nil, mserrors.NewValidationError("update", "replacement cannot be applied to many documents")
	}
	if update.IsEmpty() {
		return nil, mserrors.NewValidationError("update", "no updates provided")
	}
	res, err := c.coll.UpdateMany(ctx, toBSON(filter.Doc()), toBSON(update.Doc()), options.Update().SetUpsert(opts.Upsert))
	if err != nil {
		return nil, fmt.Errorf("mongo: update %s: %w", c.Name(), err)
	}
	return updateResult(res), nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter query.Filter, replacement *document.Document, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	if replacement == nil {
		return nil, mserrors.NewValidationError("replacement", "must not be nil")
	}
	res, err := c.coll.ReplaceOne(ctx, toBSON(filter.Doc()), toBSON(replacement), options.Replace().SetUpsert(opts.Upsert))
	if err != nil {
		return nil, fmt.Errorf("mongo: replace in %s: %w", c.Name(), err)
	}
	return updateResult(res), nil
}

func updateResult(res *mongo.UpdateResult) *storagemodels.UpdateResult {
	return &storagemodels.UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    fromBSONValue(res.UpsertedID),
	}
}

func (c *Collection) DeleteMany(ctx context.Context, filter query.Filter) (*storagemodels.DeleteResult, error) {
	res, err := c.coll.DeleteMany(ctx, toBSON(filter.Doc()))
	if err != nil {
		return nil, fmt.Errorf("mongo: delete from %s: %w", c.Name(), err)
	}
	return &storagemodels.DeleteResult{DeletedCount: res.DeletedCount}, nil
}

func (c *Collection) Find(ctx context.Context, filter query.Filter, opts ...storagemodels.FindOption) (datastore.Cursor, error) {
	o := storagemodels.ApplyFindOptions(opts...)
	fo := options.Find().SetBatchSize(o.BatchSize)
	if o.Limit > 0 {
		fo.SetLimit(o.Limit)
	}
	if o.Skip > 0 {
		fo.SetSkip(o.Skip)
	}

	cur, err := c.coll.Find(ctx, toBSON(filter.Doc()), fo)
	if err != nil {
		return nil, fmt.Errorf("mongo: find in %s: %w", c.Name(), err)
	}
	return &cursor{cur: cur}, nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter query.Filter, update query.Update) (*document.Document, error) {
	var res *mongo.SingleResult
	if update.IsReplacement() {
		res = c.coll.FindOneAndReplace(ctx, toBSON(filter.Doc()), toBSON(update.Replacement()),
			options.FindOneAndReplace().SetReturnDocument(options.Before))
	} else {
		if update.IsEmpty() {
			return nil, mserrors.NewValidationError("update", "no updates provided")
		}
		res = c.coll.FindOneAndUpdate(ctx, toBSON(filter.Doc()), toBSON(update.Doc()),
			options.FindOneAndUpdate().SetReturnDocument(options.Before))
	}
	return c.single(res, filter)
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter query.Filter) (*document.Document, error) {
	return c.single(c.coll.FindOneAndDelete(ctx, toBSON(filter.Doc())), filter)
}

func (c *Collection) single(res *mongo.SingleResult, filter query.Filter) (*document.Document, error) {
	var d bson.D
	if err := res.Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mserrors.NewNotFoundError(c.Name(), filter.String())
		}
		return nil, fmt.Errorf("mongo: %s: %w", c.Name(), err)
	}
	return fromBSON(d), nil
}

func (c *Collection) Count(ctx context.Context, filter query.Filter) (int64, error) {
	n, err := c.coll.CountDocuments(ctx, toBSON(filter.Doc()))
	if err != nil {
		return 0, fmt.Errorf("mongo: count %s: %w", c.Name(), err)
	}
	return n, nil
}

// cursor adapts *mongo.Cursor, decoding each result into a document.
type cursor struct {
	cur *mongo.Cursor
	doc *document.Document
	err error
}

func (c *cursor) Next(ctx context.Context) bool {
	c.doc = nil
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var d bson.D
	if err := c.cur.Decode(&d); err != nil {
		c.err = fmt.Errorf("mongo: decode result: %w", err)
		return false
	}
	c.doc = fromBSON(d)
	return true
}

func (c *cursor) Document() *document.Document { return c.doc }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
