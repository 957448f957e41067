/*
Package ddb provides a DynamoDB implementation of the datastore.Database
interface.

Each collection maps to one table named TablePrefix + collection name, keyed
by a single string hash attribute (default "_id"). Documents are stored as
items: nested documents become maps, sequences become lists, and times are
written as RFC3339 strings.

Filters are rendered as condition expressions. Reads run as Scans paged by
the cursor batch size:

	db, err := ddb.New(ctx, ddb.Config{
	    Region:      "us-east-1",
	    TablePrefix: "dev_",
	}, logger)
	users := db.Collection("users")
	cur, err := users.Find(ctx, query.Gte("age", 18), storagemodels.WithBatchSize(25))

Writes locate their targets with a Scan and apply each change with a
conditional UpdateItem, PutItem or DeleteItem that re-checks the filter, so a
document changed concurrently is never overwritten blindly. Insert is
guarded by attribute_not_exists on the key and reports an
AlreadyExistsError when the key is taken.

Key order is not preserved by DynamoDB; documents read back have their keys
sorted.
*/
package ddb
