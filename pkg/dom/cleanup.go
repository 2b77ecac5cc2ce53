package dom

// Remove detaches an element from the tree and cascades cleanup through it
// and all of its descendants.
func (r *Renderer) Remove(el *Element) {
	if el == nil {
		return
	}
	el.Detach()
	r.cleanup(el)
}

// Recycle removes an element and, after full cleanup and reset, parks it in
// the per-tag recycle pool for a later createElement call.
func (r *Renderer) Recycle(el *Element) {
	if el == nil {
		return
	}
	el.Detach()

	// Children are cleaned up but not pooled with the parent: reset wipes
	// the parent's child pointers.
	for _, c := range el.Children() {
		r.cleanup(c)
	}
	r.cleanupSelf(el)

	el.reset()
	if el.Tag == TextTag || el.Tag == FragmentTag {
		return
	}
	r.pool.put(el)
}

// cleanup tears down an element and its descendants: state subscribers are
// detached, event listeners removed, the key cache entry forgotten, and the
// handle's side-table entries closed. Teardown happens exactly once; a
// second cleanup of the same element is a no-op.
func (r *Renderer) cleanup(el *Element) {
	r.cleanupSelf(el)
	for _, c := range el.Children() {
		r.cleanup(c)
	}
}

func (r *Renderer) cleanupSelf(el *Element) {
	r.disposeBindings(el)
	el.RemoveListeners()
	if el.cacheKey != "" && r.keyCache[el.cacheKey] == el {
		delete(r.keyCache, el.cacheKey)
	}
	el.cacheKey = ""
	r.doc.retire(el.handle)
}

// disposeBindings disposes every state binding registered for the element's
// handle and closes the side-table entry.
func (r *Renderer) disposeBindings(el *Element) {
	for _, b := range r.bindings[el.handle] {
		b.Dispose()
	}
	delete(r.bindings, el.handle)
}

// poolSize reports recycle-pool occupancy for a tag. Test hook.
func (r *Renderer) poolSize(tag string) int {
	return r.pool.size(tag)
}
