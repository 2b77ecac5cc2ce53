package dom

// recyclePoolCap bounds the pool per tag. Beyond it, detached elements are
// simply dropped for the garbage collector.
const recyclePoolCap = 32

// recyclePool is a per-tag cache of detached, reset elements available for
// reuse by a later createElement call.
type recyclePool struct {
	byTag map[string][]*Element
	cap   int
}

func newRecyclePool() *recyclePool {
	return &recyclePool{byTag: make(map[string][]*Element), cap: recyclePoolCap}
}

// put stores a fully cleaned, reset element. Returns false when the pool for
// that tag is full.
func (p *recyclePool) put(el *Element) bool {
	bucket := p.byTag[el.Tag]
	if len(bucket) >= p.cap {
		return false
	}
	p.byTag[el.Tag] = append(bucket, el)
	return true
}

// get pops a recycled element for tag, or nil.
func (p *recyclePool) get(tag string) *Element {
	bucket := p.byTag[tag]
	if len(bucket) == 0 {
		return nil
	}
	el := bucket[len(bucket)-1]
	p.byTag[tag] = bucket[:len(bucket)-1]
	return el
}

// size reports how many elements are pooled for tag. Test hook.
func (p *recyclePool) size(tag string) int {
	return len(p.byTag[tag])
}
