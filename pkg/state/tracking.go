package state

import (
	"runtime"
	"sync"
)

// trackingContext holds the dependency-tracking state for a goroutine.
// Each goroutine has its own context so concurrent renders can track
// reads independently.
type trackingContext struct {
	// frame is the active dependency set. When non-nil, Store.Get records
	// each path it reads here. nil means no tracking (reads are free).
	frame *depSet
}

// depSet is the set of paths read during one tracked execution.
// Built per invocation, never persisted directly.
type depSet struct {
	paths map[Path]struct{}
	order []Path
}

func newDepSet() *depSet {
	return &depSet{paths: make(map[Path]struct{})}
}

func (d *depSet) add(path Path) {
	if _, ok := d.paths[path]; ok {
		return
	}
	d.paths[path] = struct{}{}
	d.order = append(d.order, path)
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID extracts the current goroutine's ID from the runtime stack.
// Implementation detail, not exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine,
// creating one if none exists.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}
	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// currentFrame returns the active dependency set, or nil when not tracking.
func currentFrame() *depSet {
	return getTrackingContext().frame
}

// setFrame installs a dependency set and returns the previous one so it can
// be restored. Frames nest: an inner tracked execution shadows the outer one.
func setFrame(d *depSet) *depSet {
	ctx := getTrackingContext()
	old := ctx.frame
	ctx.frame = d
	return old
}

// recordRead registers a path in the current dependency set, if any.
func recordRead(path Path) {
	if f := currentFrame(); f != nil {
		f.add(path)
	}
}

// Track runs fn with dependency tracking active and returns the ordered set
// of paths read through Store.Get during the execution.
func Track(fn func()) []Path {
	d := newDepSet()
	old := setFrame(d)
	defer setFrame(old)
	fn()
	return d.order
}

// Untracked runs fn with tracking suspended. Reads inside fn do not register
// dependencies for the enclosing tracked execution.
func Untracked(fn func()) {
	old := setFrame(nil)
	defer setFrame(old)
	fn()
}
