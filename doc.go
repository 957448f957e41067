/*
Package modelsync persists tagged Go structs to document stores and runs
store I/O off the caller's goroutine.

Fields are mapped with the dbsync struct tag. The tag value is an optional
document key followed by an optional index flag; one field per type may be
the index, the natural key used by Save and Load:

	type User struct {
	    ID      int      `dbsync:"id,index"`
	    Name    string   `dbsync:"name"`
	    Profile *Profile `dbsync:"profile"`
	    Token   string   `dbsync:"-"`
	}

A Client opens a backend (in-memory, MongoDB or DynamoDB) and hands out
Collection facades. Every facade operation has a synchronous form and an
Async form queued on one of two lanes: writes run in submission order on the
write lane, reads on the read lane. Async forms return a dispatch.Future and
accept an optional callback; both complete exactly once with either a result
or an error.

Basic Usage:

	client, err := modelsync.Open(ctx, config.Default())
	users, err := modelsync.Typed[User](client, "users")

	users.SaveAsync(&User{ID: 1, Name: "ada"}, func(res *storagemodels.UpdateResult, err error) {
	    // runs on the write lane
	})

	u := &User{ID: 1}
	err = users.Load(ctx, u)

	all, err := users.LoadAll(ctx)
	err = client.Close(ctx)
*/
package modelsync
