// Package state provides the path-addressable reactive state tree for the
// Reflow runtime.
//
// Application state lives in one nested tree addressed by dot-separated
// paths. Reading through Get during a tracked execution records the path as
// a dependency; a later Set on that path re-runs the tracked callback.
//
// # Core API
//
//	store := state.New(map[string]any{"user": map[string]any{"name": "Ada"}})
//	name := store.Get("user.name", "anonymous")
//	store.Set("user.name", "Grace")
//
//	unsub := store.Subscribe("user", func(path state.Path, v any) {
//	    // fires for "user" and every descendant
//	}, true)
//	defer unsub()
//
// # Reactive bindings
//
// Bind runs a callback under dependency tracking and keeps it live:
//
//	b := store.Bind(func() {
//	    fmt.Println(store.Get("count", 0))
//	})
//	store.Set("count", 1) // re-runs the callback
//	b.Dispose()
//
// Dependencies are re-captured on every run, so conditional reads adapt
// automatically.
//
// # Batching
//
// With batching enabled, writes queue and coalesce per path
// (last write wins) until the flush timer fires:
//
//	store.EnableBatching(10*time.Millisecond, 0)
//	store.Set("x", 1)
//	store.Set("x", 2) // one notification, value 2
//
// # Notification order
//
// A change to "user.name" notifies exact subscribers of "user.name", then
// hierarchical subscribers of "user", then subscribers of any descendant
// such as "user.name.first". Ancestors see the aggregate change; descendants
// are invalidated because their data may have been replaced wholesale.
package state
