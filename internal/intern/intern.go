// Package intern keeps the process-lifetime user and format strings that
// log headers reference by handle instead of by pointer.
package intern

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zeebo/xxh3"
)

// Handle refers to an interned string. The zero handle is never issued.
type Handle uint32

// Nil is the handle that resolves to NullString.
const Nil Handle = 0

// NullString is returned for handles that do not name a string.
const NullString = "(NULL)"

// ErrTooLong is returned for strings that cannot be carried in one wire field.
var ErrTooLong = errors.New("intern: string exceeds maximum field length")

// Table is an append-only, goroutine-safe string table.
type Table struct {
	mu     sync.RWMutex
	strs   []string
	byHash map[uint64][]Handle
	maxLen int
}

// New creates a table accepting strings of at most maxLen bytes.
func New(maxLen int) *Table {
	return &Table{
		byHash: make(map[uint64][]Handle),
		maxLen: maxLen,
	}
}

// Intern returns the handle for s, adding it on first use.
func (t *Table) Intern(s string) (Handle, error) {
	if t.maxLen > 0 && len(s) > t.maxLen {
		return Nil, fmt.Errorf("%w: %d > %d", ErrTooLong, len(s), t.maxLen)
	}
	h := xxh3.HashString(s)

	t.mu.RLock()
	if hd, ok := t.find(h, s); ok {
		t.mu.RUnlock()
		return hd, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if hd, ok := t.find(h, s); ok {
		return hd, nil
	}
	t.strs = append(t.strs, s)
	hd := Handle(len(t.strs))
	t.byHash[h] = append(t.byHash[h], hd)
	return hd, nil
}

// MustIntern is like Intern but panics on error.
func (t *Table) MustIntern(s string) Handle {
	hd, err := t.Intern(s)
	if err != nil {
		panic(err)
	}
	return hd
}

func (t *Table) find(h uint64, s string) (Handle, bool) {
	for _, hd := range t.byHash[h] {
		if t.strs[hd-1] == s {
			return hd, true
		}
	}
	return Nil, false
}

// Lookup returns the string behind hd, or NullString.
func (t *Table) Lookup(hd Handle) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if hd == Nil || int(hd) > len(t.strs) {
		return NullString
	}
	return t.strs[hd-1]
}

// Len returns the number of interned strings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.strs)
}
