/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/suparena/modelsync/datastore"
	"github.com/suparena/modelsync/document"
	mserrors "github.com/suparena/modelsync/errors"
	"github.com/suparena/modelsync/query"
	"github.com/suparena/modelsync/storagemodels"
)

// DefaultKeyAttribute is the hash key attribute of every collection table.
const DefaultKeyAttribute = "_id"

// Client is the subset of the DynamoDB API used by the driver.
// *dynamodb.Client satisfies it.
type Client interface {
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// Config describes how to reach DynamoDB and how collections map to tables.
type Config struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
	// TablePrefix is prepended to a collection name to form its table name.
	TablePrefix string
	// KeyAttribute is the string hash key of every table (default "_id").
	KeyAttribute string
	// ConsistentRead makes scans strongly consistent.
	ConsistentRead bool
}

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are
// used when both keys are set; otherwise the default AWS credential chain
// applies.
func NewDynamoDBClient(ctx context.Context, cfg Config) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return client, nil
}

// Database is a datastore.Database backed by DynamoDB. Each collection is a
// table named TablePrefix + collection name.
type Database struct {
	client Client
	cfg    Config
	logger *slog.Logger
}

// New connects to DynamoDB.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Database, error) {
	client, err := NewDynamoDBClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	db := NewWithClient(client, cfg, logger)
	db.logger.Info("DynamoDB client initialized", "region", cfg.Region, "tablePrefix", cfg.TablePrefix)
	return db, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, cfg Config, logger *slog.Logger) *Database {
	if cfg.KeyAttribute == "" {
		cfg.KeyAttribute = DefaultKeyAttribute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{client: client, cfg: cfg, logger: logger}
}

func (db *Database) Collection(name string) datastore.Collection {
	return &Collection{
		client:         db.client,
		name:           name,
		table:          db.cfg.TablePrefix + name,
		keyAttr:        db.cfg.KeyAttribute,
		consistentRead: db.cfg.ConsistentRead,
		logger:         db.logger.With("table", db.cfg.TablePrefix+name),
	}
}

// Close is a no-op: the SDK client holds no connection that needs closing.
func (db *Database) Close(ctx context.Context) error {
	return nil
}

// Collection implements datastore.Collection on one DynamoDB table.
type Collection struct {
	client         Client
	name           string
	table          string
	keyAttr        string
	consistentRead bool
	logger         *slog.Logger
}

func (c *Collection) Name() string { return c.name }

// withKey copies doc, adding a generated key when it has none.
func (c *Collection) withKey(doc *document.Document) *document.Document {
	if doc.Has(c.keyAttr) {
		return doc.Clone()
	}
	out := document.New(c.keyAttr, uuid.NewString())
	for _, e := range doc.Clone().Elements() {
		out.Set(e.Key, e.Value)
	}
	return out
}

func (c *Collection) InsertOne(ctx context.Context, doc *document.Document) error {
	_, err := c.insert(ctx, doc)
	return err
}

func (c *Collection) insert(ctx context.Context, doc *document.Document) (any, error) {
	stored := c.withKey(doc)
	item, err := marshalDocument(stored)
	if err != nil {
		return nil, fmt.Errorf("ddb: insert into %s: %w", c.table, err)
	}

	x := newExpression()
	cond := fmt.Sprintf("attribute_not_exists(%s)", x.name(c.keyAttr))
	_, err = c.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                &c.table,
		Item:                     item,
		ConditionExpression:      &cond,
		ExpressionAttributeNames: x.Names(),
	})
	if err != nil {
		id, _ := stored.Get(c.keyAttr)
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return nil, mserrors.NewAlreadyExistsError(c.name, fmt.Sprint(id))
		}
		return nil, fmt.Errorf("ddb: PutItem into %s failed: %w", c.table, err)
	}
	id, _ := stored.Get(c.keyAttr)
	return id, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	return c.update(ctx, filter, update, opts, false)
}

func (c *Collection) UpdateMany(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	return c.update(ctx, filter, update, opts, true)
}

func (c *Collection) ReplaceOne(ctx context.Context, filter query.Filter, replacement *document.Document, opts storagemodels.UpdateOptions) (*storagemodels.UpdateResult, error) {
	if replacement == nil {
		return nil, mserrors.NewValidationError("replacement", "must not be nil")
	}
	return c.update(ctx, filter, query.Replace(replacement), opts, false)
}

func (c *Collection) update(ctx context.Context, filter query.Filter, update query.Update, opts storagemodels.UpdateOptions, multi bool) (*storagemodels.UpdateResult, error) {
	items, err := c.matches(ctx, filter, multi)
	if err != nil {
		return nil, err
	}

	res := &storagemodels.UpdateResult{MatchedCount: int64(len(items))}
	for _, item := range items {
		before, err := unmarshalItem(item)
		if err != nil {
			return nil, err
		}
		after := before.Clone()
		if err := update.Apply(after); err != nil {
			return nil, fmt.Errorf("ddb: update %s: %w", c.table, err)
		}
		if _, err := c.write(ctx, item, filter, update, after); err != nil {
			return nil, err
		}
		if !sameContent(before, after) {
			res.ModifiedCount++
		}
	}
	if len(items) > 0 || !opts.Upsert {
		return res, nil
	}

	seed := &document.Document{}
	for _, eq := range filter.Equalities() {
		if err := query.Set(eq.Key, eq.Value).Apply(seed); err != nil {
			return nil, err
		}
	}
	if err := update.Apply(seed); err != nil {
		return nil, fmt.Errorf("ddb: upsert %s: %w", c.table, err)
	}
	id, err := c.insert(ctx, seed)
	if err != nil {
		return nil, err
	}
	res.UpsertedCount = 1
	res.UpsertedID = id
	return res, nil
}

// write stores the updated form of item and returns its previous attributes.
// Operator updates go through UpdateItem; replacements through PutItem.
func (c *Collection) write(ctx context.Context, item map[string]types.AttributeValue, filter query.Filter, update query.Update, after *document.Document) (map[string]types.AttributeValue, error) {
	key, err := c.keyOf(item)
	if err != nil {
		return nil, err
	}

	x := newExpression()
	cond, err := c.writeCondition(x, filter)
	if err != nil {
		return nil, err
	}

	var old map[string]types.AttributeValue
	if update.IsReplacement() {
		newItem, err := marshalDocument(after)
		if err != nil {
			return nil, fmt.Errorf("ddb: replace in %s: %w", c.table, err)
		}
		newItem[c.keyAttr] = key[c.keyAttr]
		out, err := c.client.PutItem(ctx, &sdk.PutItemInput{
			TableName:                 &c.table,
			Item:                      newItem,
			ConditionExpression:       &cond,
			ExpressionAttributeNames:  x.Names(),
			ExpressionAttributeValues: x.Values(),
			ReturnValues:              types.ReturnValueAllOld,
		})
		if err != nil {
			return nil, c.writeError("PutItem", err)
		}
		old = out.Attributes
	} else {
		expr, err := x.update(update, c.keyAttr)
		if err != nil {
			return nil, err
		}
		out, err := c.client.UpdateItem(ctx, &sdk.UpdateItemInput{
			TableName:                 &c.table,
			Key:                       key,
			UpdateExpression:          &expr,
			ConditionExpression:       &cond,
			ExpressionAttributeNames:  x.Names(),
			ExpressionAttributeValues: x.Values(),
			ReturnValues:              types.ReturnValueAllOld,
		})
		if err != nil {
			return nil, c.writeError("UpdateItem", err)
		}
		old = out.Attributes
	}
	if old == nil {
		old = item
	}
	return old, nil
}

func (c *Collection) writeError(op string, err error) error {
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		return mserrors.NewConditionFailedError(op, "document changed or was removed concurrently")
	}
	return fmt.Errorf("ddb: %s on %s failed: %w", op, c.table, err)
}

func (c *Collection) DeleteMany(ctx context.Context, filter query.Filter) (*storagemodels.DeleteResult, error) {
	items, err := c.matches(ctx, filter, true)
	if err != nil {
		return nil, err
	}

	res := &storagemodels.DeleteResult{}
	for _, item := range items {
		if _, err := c.deleteItem(ctx, item, filter); err != nil {
			if mserrors.IsConditionFailed(err) {
				// no longer matches
				continue
			}
			return res, err
		}
		res.DeletedCount++
	}
	return res, nil
}

func (c *Collection) deleteItem(ctx context.Context, item map[string]types.AttributeValue, filter query.Filter) (map[string]types.AttributeValue, error) {
	key, err := c.keyOf(item)
	if err != nil {
		return nil, err
	}
	x := newExpression()
	cond, err := c.writeCondition(x, filter)
	if err != nil {
		return nil, err
	}
	out, err := c.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                 &c.table,
		Key:                       key,
		ConditionExpression:       &cond,
		ExpressionAttributeNames:  x.Names(),
		ExpressionAttributeValues: x.Values(),
		ReturnValues:              types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, c.writeError("DeleteItem", err)
	}
	if out.Attributes == nil {
		return item, nil
	}
	return out.Attributes, nil
}

func (c *Collection) Find(ctx context.Context, filter query.Filter, opts ...storagemodels.FindOption) (datastore.Cursor, error) {
	input, err := c.scanInput(filter)
	if err != nil {
		return nil, err
	}
	return newScanCursor(c.client, input, storagemodels.ApplyFindOptions(opts...)), nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter query.Filter, update query.Update) (*document.Document, error) {
	items, err := c.matches(ctx, filter, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, mserrors.NewNotFoundError(c.name, filter.String())
	}

	before, err := unmarshalItem(items[0])
	if err != nil {
		return nil, err
	}
	after := before.Clone()
	if err := update.Apply(after); err != nil {
		return nil, fmt.Errorf("ddb: update %s: %w", c.table, err)
	}
	old, err := c.write(ctx, items[0], filter, update, after)
	if err != nil {
		return nil, err
	}
	return unmarshalItem(old)
}

func (c *Collection) FindOneAndDelete(ctx context.Context, filter query.Filter) (*document.Document, error) {
	items, err := c.matches(ctx, filter, false)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, mserrors.NewNotFoundError(c.name, filter.String())
	}
	old, err := c.deleteItem(ctx, items[0], filter)
	if err != nil {
		return nil, err
	}
	return unmarshalItem(old)
}

func (c *Collection) Count(ctx context.Context, filter query.Filter) (int64, error) {
	input, err := c.scanInput(filter)
	if err != nil {
		return 0, err
	}
	input.Select = types.SelectCount

	var total int64
	for {
		out, err := c.client.Scan(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("ddb: count %s: %w", c.table, err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// sameContent compares documents ignoring key order, which DynamoDB does
// not keep.
func sameContent(a, b *document.Document) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, e := range a.Elements() {
		v, ok := b.Get(e.Key)
		if !ok || !valuesMatch(e.Value, v) {
			return false
		}
	}
	return true
}

func valuesMatch(a, b any) bool {
	da, okA := a.(*document.Document)
	db, okB := b.(*document.Document)
	if okA && okB {
		return sameContent(da, db)
	}
	return document.ValuesEqual(a, b)
}
