/*
Package query builds the filter and update expressions passed to a datastore.

Expressions are plain values. The in-memory driver evaluates them with
Filter.Match and Update.Apply; the MongoDB and DynamoDB drivers render them
into their native forms.

	f := query.And(query.Eq("id", 42), query.Gte("age", 18))
	u := query.Set("name", "Ada").Inc("logins", 1)

Field names may use dots to reach into nested documents ("profile.uid").
*/
package query
