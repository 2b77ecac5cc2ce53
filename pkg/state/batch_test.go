package state

import (
	"testing"
	"time"
)

func TestBatchCoalescesSamePath(t *testing.T) {
	s := New(nil)
	s.EnableBatching(5*time.Millisecond, 0)

	var calls int
	var last any
	s.Subscribe("x", func(_ Path, v any) {
		calls++
		last = v
	})

	s.Set("x", 1)
	s.Set("x", 2)
	s.Set("x", 3)

	if calls != 0 {
		t.Fatalf("notification fired before flush, calls=%d", calls)
	}
	if s.PendingUpdates() != 1 {
		t.Errorf("same-path updates should coalesce, pending=%d", s.PendingUpdates())
	}

	s.Flush()
	if calls != 1 {
		t.Errorf("expected exactly one notification, got %d", calls)
	}
	if last != 3 {
		t.Errorf("expected last write to win, got %v", last)
	}
}

func TestBatchTimerFlush(t *testing.T) {
	s := New(nil)
	s.EnableBatching(time.Millisecond, 0)

	fired := make(chan any, 1)
	s.Subscribe("y", func(_ Path, v any) { fired <- v })

	s.Set("y", "queued")

	select {
	case v := <-fired:
		if v != "queued" {
			t.Errorf("expected queued, got %v", v)
		}
	case <-time.After(time.Second):
		t.Fatal("flush timer never fired")
	}
}

func TestBatchInsertionOrderAcrossPaths(t *testing.T) {
	s := New(nil)
	s.EnableBatching(time.Hour, 0) // flush manually

	var order []Path
	s.Subscribe("a", func(p Path, _ any) { order = append(order, p) })
	s.Subscribe("b", func(p Path, _ any) { order = append(order, p) })

	s.Set("b", 1)
	s.Set("a", 2)
	s.Set("b", 3) // coalesces into b's original slot

	s.Flush()

	want := []Path{"b", "a"}
	if len(order) != len(want) || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestBatchOverflowForcesFlush(t *testing.T) {
	s := New(nil)
	s.EnableBatching(time.Hour, 2)

	var calls int
	s.Subscribe("p", func(Path, any) { calls++ }, true)

	s.Set("p.a", 1)
	s.Set("p.b", 2) // hits maxQueue, flushes immediately

	if calls != 2 {
		t.Errorf("overflow should flush both updates, got %d notifications", calls)
	}
	if s.PendingUpdates() != 0 {
		t.Errorf("queue not drained, pending=%d", s.PendingUpdates())
	}
}

func TestDisableBatchingFlushes(t *testing.T) {
	s := New(nil)
	s.EnableBatching(time.Hour, 0)

	s.Set("z", 9)
	s.DisableBatching()

	if got := s.Get("z", nil); got != 9 {
		t.Errorf("disable should apply queued writes, got %v", got)
	}

	// Back to immediate mode
	var calls int
	s.Subscribe("z", func(Path, any) { calls++ })
	s.Set("z", 10)
	if calls != 1 {
		t.Errorf("expected immediate notification after disable, got %d", calls)
	}
}
