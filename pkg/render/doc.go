// Package render renders view nodes to HTML strings, deciding on its own
// whether a tree needs asynchronous resolution.
//
// The default auto mode makes one synchronous attempt; if any component,
// Render method, or evaluated property yields a pending value, the whole
// subtree is re-driven through the asynchronous path, which awaits every
// step depth-first and produces output identical to what the synchronous
// path would have produced. The walk is implemented once and parameterized
// over the execution strategy; there are no mirrored sync/async walkers.
//
// Text and attribute values are escaped before interpolation. Errors at any
// level degrade to inline markers and never propagate past the renderer
// boundary. Recursion is bounded; self-referential trees yield an inline
// depth marker instead of overflowing.
//
// The package depends only on the state store's read API: rendering to a
// string never creates subscriptions or live elements.
package render
