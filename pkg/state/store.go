package state

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// idCounter issues unique identifiers for subscribers and bindings.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}

// Middleware inspects or transforms a value before it is written.
// It receives the target path, the incoming value, and the current stored
// value, and returns the value to write. Returning a value deep-equal to the
// stored value vetoes the write. A panicking middleware is logged and skipped
// with the incoming value preserved.
type Middleware func(path Path, value, old any) any

// UnsubscribeFunc removes a subscriber. Safe to call more than once.
type UnsubscribeFunc func()

// SubscribeFunc is an external subscriber callback. It receives the path the
// subscriber was registered at and the current value at that path.
type SubscribeFunc func(path Path, value any)

// subscriber is one registered callback on a path.
type subscriber struct {
	id           uint64
	path         Path
	fn           SubscribeFunc
	hierarchical bool
}

// Store is the path-addressable state tree with dependency tracking.
// All access goes through Get/Set/Subscribe; the tree is never handed out
// by reference.
type Store struct {
	mu   sync.RWMutex
	tree map[string]any

	// initial is a frozen deep copy of the tree at construction, used by Reset.
	initial map[string]any

	// subs holds subscribers grouped by registered path. subOrder preserves
	// registration order within each path bucket implicitly (append-only).
	subMu sync.RWMutex
	subs  map[Path][]*subscriber

	// inFlight is the reentrancy set: paths currently mid-notification.
	// A nested Set on an in-flight path is dropped with a warning.
	inFlight map[Path]bool
	flightMu sync.Mutex

	middleware []Middleware

	batch *batcher

	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for warnings and dropped operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMiddleware appends middleware run, in order, on every Set.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Store) { s.middleware = append(s.middleware, mw...) }
}

// New creates a Store seeded from initial. The seed is deep-copied twice:
// once into the live tree and once into the frozen snapshot Reset restores.
// A nil seed starts empty.
func New(initial map[string]any, opts ...Option) *Store {
	s := &Store{
		tree:     deepCopyTree(initial),
		initial:  deepCopyTree(initial),
		subs:     make(map[Path][]*subscriber),
		inFlight: make(map[Path]bool),
		logger:   slog.Default().With("component", "state"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// deepCopyTree copies a nested string-keyed tree. Leaf values are shared;
// only the mapping structure is copied, which is what create-on-write and
// Reset need.
func deepCopyTree(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if m, ok := v.(map[string]any); ok {
			dst[k] = deepCopyTree(m)
		} else {
			dst[k] = v
		}
	}
	return dst
}

// Get returns the value at path, or def if any segment along the path is
// absent. Inside a tracked execution the read registers path in the current
// dependency set. A malformed path is logged and returns def.
func (s *Store) Get(path Path, def any) any {
	if !validPath(path) {
		s.logger.Warn("invalid state path", "path", path, "op", "get")
		return def
	}

	recordRead(path)

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.lookup(path)
	if !ok {
		return def
	}
	return v
}

// Has reports whether path resolves to a value. It does not register a
// dependency.
func (s *Store) Has(path Path) bool {
	if !validPath(path) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookup(path)
	return ok
}

// lookup walks the tree. Caller holds at least a read lock.
func (s *Store) lookup(path Path) (any, bool) {
	segs := splitPath(path)
	var cur any = s.tree
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at path and notifies subscribers. Middleware runs first
// and may transform the value; a write whose final value is deep-equal to
// the stored value is skipped entirely. When batching is enabled the update
// is queued instead and applied on the next flush. ctx is an opaque caller
// tag carried on the update record and surfaced to nothing but logs.
func (s *Store) Set(path Path, value any, ctx ...any) {
	var setCtx any
	if len(ctx) > 0 {
		setCtx = ctx[0]
	}

	if !validPath(path) {
		s.logger.Warn("invalid state path", "path", path, "op", "set")
		return
	}

	if b := s.batch; b != nil && b.enabled() {
		b.enqueue(path, value, setCtx)
		return
	}

	s.applySet(path, value, setCtx)
}

// applySet is the unbatched write path.
func (s *Store) applySet(path Path, value any, ctx any) {
	// Reentrancy guard: a subscriber writing back to the path it is being
	// notified for would loop forever.
	s.flightMu.Lock()
	if s.inFlight[path] {
		s.flightMu.Unlock()
		s.logger.Warn("circular update dropped", "path", path)
		return
	}
	s.flightMu.Unlock()

	s.mu.Lock()
	old, _ := s.lookup(path)

	final := value
	for _, mw := range s.middleware {
		final = s.runMiddleware(mw, path, final, old)
	}

	if deepEqual(old, final) {
		s.mu.Unlock()
		return
	}

	s.write(path, final)
	s.mu.Unlock()

	s.flightMu.Lock()
	s.inFlight[path] = true
	s.flightMu.Unlock()

	s.notify(path, final)

	s.flightMu.Lock()
	delete(s.inFlight, path)
	s.flightMu.Unlock()
}

// runMiddleware invokes one middleware, containing panics.
func (s *Store) runMiddleware(mw Middleware, path Path, value, old any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("middleware panic", "path", path, "panic", r)
			out = value
		}
	}()
	return mw(path, value, old)
}

// write stores value at path, creating intermediate mappings as needed.
// Caller holds the write lock.
func (s *Store) write(path Path, value any) {
	segs := splitPath(path)
	m := s.tree
	for _, seg := range segs[:len(segs)-1] {
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[seg] = next
		}
		m = next
	}
	m[segs[len(segs)-1]] = value
}

// Subscribe registers cb on path. Hierarchical subscribers also fire when a
// strict descendant of path changes; exact subscribers fire only on the path
// itself (both kinds still fire when an ancestor is replaced wholesale).
// The returned function unsubscribes; calling it twice is harmless.
func (s *Store) Subscribe(path Path, cb SubscribeFunc, hierarchical ...bool) UnsubscribeFunc {
	if !validPath(path) {
		s.logger.Warn("invalid state path", "path", path, "op", "subscribe")
		return func() {}
	}

	h := true
	if len(hierarchical) > 0 {
		h = hierarchical[0]
	}

	sub := &subscriber{id: nextID(), path: path, fn: cb, hierarchical: h}

	s.subMu.Lock()
	s.subs[path] = append(s.subs[path], sub)
	s.subMu.Unlock()

	return func() { s.unsubscribe(sub) }
}

func (s *Store) unsubscribe(sub *subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	bucket := s.subs[sub.path]
	for i, existing := range bucket {
		if existing.id == sub.id {
			s.subs[sub.path] = append(bucket[:i:i], bucket[i+1:]...)
			return
		}
	}
}

// notify fires subscribers for a change at path, in the fixed order:
// exact subscribers of path, then subscribers of each strict-prefix
// ancestor, then subscribers of every strict descendant. Ancestors see the
// aggregate change; descendants are invalidated because their data may have
// been replaced wholesale. Callback panics are isolated per subscriber.
func (s *Store) notify(path Path, value any) {
	// Copy-before-notify: callbacks may subscribe or unsubscribe.
	s.subMu.RLock()
	exact := append([]*subscriber(nil), s.subs[path]...)

	var up []*subscriber
	for _, anc := range ancestors(path) {
		for _, sub := range s.subs[anc] {
			if sub.hierarchical {
				up = append(up, sub)
			}
		}
	}

	var down []*subscriber
	for p, bucket := range s.subs {
		if isDescendant(p, path) {
			down = append(down, bucket...)
		}
	}
	s.subMu.RUnlock()

	for _, sub := range exact {
		s.invoke(sub, path, value)
	}
	for _, sub := range up {
		v, _ := s.snapshotAt(sub.path)
		s.invoke(sub, sub.path, v)
	}
	for _, sub := range down {
		v, _ := s.snapshotAt(sub.path)
		s.invoke(sub, sub.path, v)
	}
}

// snapshotAt reads the current value at path without dependency tracking.
func (s *Store) snapshotAt(path Path) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(path)
}

// invoke runs one subscriber callback, containing panics so one failing
// subscriber never aborts its siblings.
func (s *Store) invoke(sub *subscriber, path Path, value any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panic", "path", path, "subscriber", sub.id, "panic", r)
		}
	}()
	sub.fn(path, value)
}

// Reset re-seeds the tree from the frozen initial snapshot. Paths named in
// preserve keep their current values across the reset. Every registered
// subscriber is notified once, in an unspecified order, with the post-reset
// value at its path.
func (s *Store) Reset(preserve ...Path) {
	s.mu.Lock()
	preserved := make(map[Path]any, len(preserve))
	for _, p := range preserve {
		if v, ok := s.lookup(p); ok {
			preserved[p] = v
		}
	}

	s.tree = deepCopyTree(s.initial)
	for p, v := range preserved {
		if validPath(p) {
			s.write(p, v)
		}
	}
	s.mu.Unlock()

	s.subMu.RLock()
	var all []*subscriber
	for _, bucket := range s.subs {
		all = append(all, bucket...)
	}
	s.subMu.RUnlock()

	for _, sub := range all {
		v, _ := s.snapshotAt(sub.path)
		s.invoke(sub, sub.path, v)
	}
}

// subscriberCount reports the number of live subscribers. Test hook.
func (s *Store) subscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	n := 0
	for _, bucket := range s.subs {
		n += len(bucket)
	}
	return n
}
