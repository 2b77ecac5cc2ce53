package dom

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/reflow-dev/reflow/pkg/view"
)

// defaultAsyncTTL is how long a resolved async bundle stays cached. The
// cache exists to avoid refetch thrash when the same region re-renders
// rapidly, not to be a data store.
const defaultAsyncTTL = 30 * time.Second

// asyncCache holds resolved async values per element slot. Each entry
// remembers the Pending it was resolved from, and is served only when the
// same Pending arrives again: a slot that receives a different async value
// misses and awaits fresh, so a legitimate change is never masked by an
// earlier resolution. All access runs under the renderer's tree lock.
type asyncCache struct {
	entries map[string]asyncEntry
	ttl     time.Duration
}

type asyncEntry struct {
	src view.Pending
	val any
	at  time.Time
}

func newAsyncCache(ttl time.Duration) *asyncCache {
	return &asyncCache{entries: make(map[string]asyncEntry), ttl: ttl}
}

// get returns the cached resolution for the slot when p is the very Pending
// the entry was resolved from and the entry is still fresh. Any other
// outcome evicts the entry.
func (c *asyncCache) get(key string, p view.Pending) (any, bool) {
	e, ok := c.entries[key]
	if !ok || time.Since(e.at) > c.ttl || !samePending(e.src, p) {
		delete(c.entries, key)
		return nil, false
	}
	return e.val, true
}

func (c *asyncCache) put(key string, p view.Pending, v any) {
	c.entries[key] = asyncEntry{src: p, val: v, at: time.Now()}
}

// samePending reports whether a and b are the same Pending instance.
// Non-comparable implementations never match and are always re-awaited.
func samePending(a, b view.Pending) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// resolveAsync handles a Pending property, child list or component result:
// the element immediately gets a loading marker class, the value resolves
// off the render path, and apply runs with the result (or an inline error
// marker replaces it on rejection). The continuation re-enters through the
// renderer's tree lock, so it cannot interleave with a render walk or an
// event dispatch, and the host is notified once it has landed.
func (r *Renderer) resolveAsync(el *Element, slot string, p view.Pending, apply func(any)) {
	// Keyed elements cache across rebuilds; anonymous ones only per handle.
	cacheKey := el.cacheKey + "/" + slot
	if el.cacheKey == "" {
		cacheKey = "h" + strconv.FormatUint(el.handle, 36) + "/" + slot
	}

	if v, ok := r.async.get(cacheKey, p); ok {
		apply(v)
		return
	}

	addClass(el, LoadingClass)

	go func() {
		v, err := p.Await(context.Background())
		r.Do(func() {
			removeClass(el, LoadingClass)
			if err != nil {
				r.logger.Warn("async resolution failed", "tag", el.Tag, "slot", slot, "error", err)
				r.applyAsyncError(el, slot, err)
				return
			}
			r.async.put(cacheKey, p, v)
			apply(v)
		})
		r.notifyAsync()
	}()
}

// applyAsyncError renders the inline rejection marker for the slot.
func (r *Renderer) applyAsyncError(el *Element, slot string, err error) {
	switch slot {
	case "children", "component":
		el.ReplaceChildren(r.errorElement(err.Error()))
	case "text":
		addClass(el, ErrorClass)
		el.SetText(err.Error())
	default:
		addClass(el, ErrorClass)
	}
}

func addClass(el *Element, name string) {
	if el.HasClass(name) {
		return
	}
	cur, _ := el.Attr("class")
	if cur == "" {
		el.SetAttr("class", name)
		return
	}
	el.SetAttr("class", cur+" "+name)
}

func removeClass(el *Element, name string) {
	classes := el.ClassList()
	if len(classes) == 0 {
		return
	}
	kept := classes[:0]
	for _, c := range classes {
		if c != name {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		el.RemoveAttr("class")
		return
	}
	el.SetAttr("class", strings.Join(kept, " "))
}
