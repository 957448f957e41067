/*
Package registry holds process-wide registrations of persisted types.

Factories:
The mapping engine instantiates nested and top-level values through a
registered factory when one exists, falling back to the type's zero value:

	registry.RegisterFactory(func() *User {
	    return &User{Roles: []string{"member"}}
	})

Named types:
Types can also be registered under a name so that tools such as the
modelsync CLI can decode documents without compile-time knowledge of the
type:

	registry.RegisterType("user", func() *User { return &User{} })
	nt, err := registry.LookupType("user")

The registry is thread-safe and should be populated during initialization,
typically in init() functions.
*/
package registry
