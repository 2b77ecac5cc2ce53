// Package dom renders view nodes into a live, server-held element tree and
// keeps reactive regions bound to the state store.
//
// A Renderer owns a Document of Elements, the element key cache, the
// per-tag recycle pool, and every element binding. Rendering has two modes:
//
//   - fine-grained (the default) always constructs fresh elements, with
//     reactive props bound through dependency tracking
//   - batch attempts key-based reuse of cached elements, mutating matches
//     in place; repeated reconciliation failures demote the renderer back
//     to fine-grained permanently
//
// Keyed child reconciliation preserves element identity for matches and
// recycles the rest. Removing an element cascades cleanup: state
// subscribers are detached, listeners removed, children recursed, and side
// tables closed, exactly once.
//
// Every mutation of the live tree can be observed as a Patch through the
// Document's sink, so a thin client can replay changes remotely.
package dom
