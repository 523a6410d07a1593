// Package indirect maps small stable IDs to values whose location the holder
// cannot pin, such as payload regions inside the log ring or raw pointers
// captured by a producer. An ID carries a slot index and a generation; once
// released, every copy of the ID stops resolving.
package indirect

import "sync"

// ID identifies a bound value. The zero ID is never issued.
type ID uint64

// Nil is the ID that never resolves.
const Nil ID = 0

func makeID(idx, gen uint32) ID {
	return ID(uint64(idx+1)<<32 | uint64(gen))
}

func (id ID) split() (idx, gen uint32, ok bool) {
	hi := uint32(id >> 32)
	if hi == 0 {
		return 0, 0, false
	}
	return hi - 1, uint32(id), true
}

type slot[T any] struct {
	gen   uint32
	used  bool
	value T
}

// Table is a bounded, goroutine-safe ID table.
type Table[T any] struct {
	mu    sync.Mutex
	slots []slot[T]
	free  []uint32
	limit int
	live  int
}

const initialSlots = 1024

// New creates a table holding at most capacity live bindings. Slots are
// allocated as bindings are made.
func New[T any](capacity int) *Table[T] {
	if capacity <= 0 {
		capacity = initialSlots
	}
	n := min(capacity, initialSlots)
	return &Table[T]{
		slots: make([]slot[T], 0, n),
		free:  make([]uint32, 0, n),
		limit: capacity,
	}
}

// Bind stores v and returns its ID. It fails when the table is full.
func (t *Table[T]) Bind(v T) (ID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else if len(t.slots) < t.limit {
		t.slots = append(t.slots, slot[T]{gen: 1})
		idx = uint32(len(t.slots) - 1)
	} else {
		return Nil, false
	}

	s := &t.slots[idx]
	s.used = true
	s.value = v
	t.live++
	return makeID(idx, s.gen), true
}

// Resolve returns the value bound to id, failing for stale or unknown IDs.
func (t *Table[T]) Resolve(id ID) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	s := t.lookup(id)
	if s == nil {
		return zero, false
	}
	return s.value, true
}

// Release unbinds id. Releasing a stale or unknown ID is a no-op.
func (t *Table[T]) Release(id ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.lookup(id)
	if s == nil {
		return false
	}
	var zero T
	s.used = false
	s.value = zero
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	idx, _, _ := id.split()
	t.free = append(t.free, idx)
	t.live--
	return true
}

func (t *Table[T]) lookup(id ID) *slot[T] {
	idx, gen, ok := id.split()
	if !ok || int(idx) >= len(t.slots) {
		return nil
	}
	s := &t.slots[idx]
	if !s.used || s.gen != gen {
		return nil
	}
	return s
}

// Len returns the number of live bindings.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Cap returns the table capacity.
func (t *Table[T]) Cap() int {
	return t.limit
}
