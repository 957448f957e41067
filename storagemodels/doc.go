/*
Package storagemodels defines the result and option types shared by every
datastore driver.

UpdateResult:
Returned by update, replace and upsert operations:

	res, err := coll.ReplaceOne(ctx, query.Eq("id", 1), doc, storagemodels.UpdateOptions{Upsert: true})
	if res.UpsertedCount == 1 {
	    // a new document was inserted
	}

DeleteResult:
Returned by DeleteMany with the number of removed documents.

FindOptions:
Configuration for cursor paging:

	cur, err := coll.Find(ctx, query.All(),
	    storagemodels.WithBatchSize(25),
	    storagemodels.WithLimit(100),
	)

These types provide a consistent interface across different storage implementations.
*/
package storagemodels
