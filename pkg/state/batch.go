package state

import (
	"sync"
	"time"
)

// DefaultMaxQueue is the batch queue bound when none is configured.
// Reaching it forces an immediate flush.
const DefaultMaxQueue = 1000

// Update is one queued write, recorded while batching is active.
// Multiple updates for the same path coalesce to the most recent value
// before being applied.
type Update struct {
	Path  Path
	Value any
	Ctx   any
	At    time.Time
}

// batcher collects updates while batching is enabled and flushes them on a
// timer, coalescing same-path writes last-write-wins.
type batcher struct {
	store *Store

	mu       sync.Mutex
	on       bool
	delay    time.Duration
	maxQueue int

	// queue preserves insertion order across distinct paths; index maps a
	// path to its slot for in-place coalescing.
	queue []Update
	index map[Path]int

	timer *time.Timer
}

// EnableBatching turns on update batching with the given flush delay.
// A zero or negative delay disables batching again. maxQueue bounds the
// queue; zero means DefaultMaxQueue.
func (s *Store) EnableBatching(delay time.Duration, maxQueue int) {
	if s.batch == nil {
		s.batch = &batcher{store: s, index: make(map[Path]int)}
	}
	b := s.batch

	b.mu.Lock()
	if delay <= 0 {
		b.on = false
		b.stopTimerLocked()
		pending := b.drainLocked()
		b.mu.Unlock()
		s.applyAll(pending)
		return
	}
	if maxQueue <= 0 {
		maxQueue = DefaultMaxQueue
	}
	b.on = true
	b.delay = delay
	b.maxQueue = maxQueue
	b.mu.Unlock()
}

// DisableBatching flushes any queued updates and returns to immediate mode.
func (s *Store) DisableBatching() {
	s.EnableBatching(0, 0)
}

// Flush applies all queued updates immediately without waiting for the timer.
func (s *Store) Flush() {
	b := s.batch
	if b == nil {
		return
	}
	b.mu.Lock()
	b.stopTimerLocked()
	pending := b.drainLocked()
	b.mu.Unlock()
	s.applyAll(pending)
}

// applyAll applies drained updates through the unbatched path, in insertion
// order.
func (s *Store) applyAll(pending []Update) {
	for _, u := range pending {
		s.applySet(u.Path, u.Value, u.Ctx)
	}
}

func (b *batcher) enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

// enqueue records an update, coalescing with any queued update for the same
// path. Queue overflow forces an immediate flush.
func (b *batcher) enqueue(path Path, value any, ctx any) {
	b.mu.Lock()

	u := Update{Path: path, Value: value, Ctx: ctx, At: time.Now()}
	if i, ok := b.index[path]; ok {
		b.queue[i] = u
	} else {
		b.index[path] = len(b.queue)
		b.queue = append(b.queue, u)
	}

	if len(b.queue) >= b.maxQueue {
		b.stopTimerLocked()
		pending := b.drainLocked()
		b.mu.Unlock()
		b.store.logger.Warn("batch queue overflow, flushing", "pending", len(pending))
		b.store.applyAll(pending)
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.delay, b.flushOnTimer)
	}
	b.mu.Unlock()
}

// flushOnTimer is the timer callback.
func (b *batcher) flushOnTimer() {
	b.mu.Lock()
	b.timer = nil
	pending := b.drainLocked()
	b.mu.Unlock()
	b.store.applyAll(pending)
}

// drainLocked returns and clears the queue. Caller holds b.mu.
func (b *batcher) drainLocked() []Update {
	pending := b.queue
	b.queue = nil
	b.index = make(map[Path]int)
	return pending
}

func (b *batcher) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// PendingUpdates reports how many updates are queued. Zero when batching is
// off.
func (s *Store) PendingUpdates() int {
	b := s.batch
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}
