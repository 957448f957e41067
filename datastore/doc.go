/*
Package datastore defines the driver contract used by modelsync.

A Database hands out named Collections. A Collection stores ordered
documents and evaluates the filter and update expressions built with the
query package:

	type Collection interface {
	    InsertOne(ctx, doc) error
	    UpdateOne(ctx, filter, update, opts) (*storagemodels.UpdateResult, error)
	    UpdateMany(ctx, filter, update, opts) (*storagemodels.UpdateResult, error)
	    ReplaceOne(ctx, filter, replacement, opts) (*storagemodels.UpdateResult, error)
	    DeleteMany(ctx, filter) (*storagemodels.DeleteResult, error)
	    Find(ctx, filter, opts...) (Cursor, error)
	    FindOneAndUpdate(ctx, filter, update) (*document.Document, error)
	    FindOneAndDelete(ctx, filter) (*document.Document, error)
	    Count(ctx, filter) (int64, error)
	}

Implementations:
  - memory: in-process store for tests and local tooling, with error injection
  - mongo: MongoDB through the official Go driver
  - ddb: DynamoDB, one table per collection prefix keyed by a single attribute

Drivers return errors.ErrNotFound from the FindOneAnd* operations when no
document matches, and wrap driver failures with %w.
*/
package datastore
