/*
Package mongo provides a MongoDB implementation of the datastore.Database
interface on top of the official mongo-go-driver.

Documents, filters and updates are converted to bson.D keeping key order,
so a collection round-trips documents exactly as they were written. Integer
values read back as int64 and BSON dates as time.Time.
*/
package mongo
