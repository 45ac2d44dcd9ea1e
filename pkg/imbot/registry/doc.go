// Package registry provides a generic thread-safe registry that keeps
// values in insertion order.
//
// Bots use it for their friend, group and stranger lists and the package
// level instance table, where listing order must match the order contacts
// were added:
//
//	friends := registry.New[int64, *Friend]()
//	friends.Put(1, alice)
//	friends.Put(2, bob)
//	friends.Values() // [alice bob]
//
// # Lazy Initialization
//
// GetOrCreate runs its factory at most once per key:
//
//	g, created := groups.GetOrCreate(id, func() *Group { return newGroup(id) })
//
// # Thread Safety
//
// All methods are safe for concurrent use. Range, Keys and Values work on a
// snapshot and never observe a partial update.
package registry
