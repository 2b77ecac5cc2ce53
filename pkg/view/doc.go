// Package view defines the view-node model shared by the DOM and string
// renderers.
//
// Views arrive as plain nested single-key maps (the wire format):
//
//	map[string]any{"div": map[string]any{
//	    "class": "card",
//	    "text":  func() any { return store.Get("user.name", "") },
//	}}
//
// Parse ingests that shape exactly once into a tagged Node variant, so the
// rest of the runtime never re-inspects map keys. Property values may be
// literals, nested view nodes, zero-argument functions (reactive bindings),
// or Pending values that resolve later.
//
// Pending is the explicit asynchrony capability: a value is asynchronous
// exactly when it implements Pending. Future[T] is the standard
// implementation.
package view
