package state

import "sync"

// Binding is a reactive subscriber: a callback re-run whenever any path it
// read on its previous run changes. Each run captures a fresh dependency
// set; paths read for the first time are subscribed on the fly. Paths no
// longer read are not eagerly unsubscribed — the subscription stays armed
// until the binding is disposed or PruneStale is called. Firing a stale
// subscription just re-runs the callback, which re-reads nothing from that
// path and produces no visible change.
type Binding struct {
	id    uint64
	store *Store
	fn    func()

	mu       sync.Mutex
	subs     map[Path]UnsubscribeFunc
	last     []Path
	disposed bool
}

// Bind runs fn once under dependency tracking and keeps it live: any state
// path fn reads subscribes the binding, and a later change to that path
// re-runs fn (re-tracking its dependencies each time, so conditional reads
// adapt automatically). Dispose tears down every subscription.
func (s *Store) Bind(fn func()) *Binding {
	b := &Binding{
		id:    nextID(),
		store: s,
		fn:    fn,
		subs:  make(map[Path]UnsubscribeFunc),
	}
	b.run()
	return b
}

// run executes the callback tracked and subscribes newly discovered paths.
func (b *Binding) run() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	deps := Track(b.fn)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.last = deps
	for _, p := range deps {
		if _, ok := b.subs[p]; ok {
			continue
		}
		path := p
		b.subs[path] = b.store.Subscribe(path, func(Path, any) {
			b.run()
		}, true)
	}
}

// Dependencies returns the paths read on the most recent run.
func (b *Binding) Dependencies() []Path {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Path(nil), b.last...)
}

// PruneStale unsubscribes paths that were not read on the most recent run.
// The store never calls this itself; long-lived callers may, to bound
// subscription growth.
func (b *Binding) PruneStale() {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := make(map[Path]struct{}, len(b.last))
	for _, p := range b.last {
		live[p] = struct{}{}
	}
	for p, unsub := range b.subs {
		if _, ok := live[p]; !ok {
			unsub()
			delete(b.subs, p)
		}
	}
}

// Dispose unsubscribes everything. Idempotent.
func (b *Binding) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return
	}
	b.disposed = true
	for p, unsub := range b.subs {
		unsub()
		delete(b.subs, p)
	}
}
