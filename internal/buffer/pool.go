package buffer

import "sync"

// Deferred is an out-of-line argument waiting to be copied into the ring.
type Deferred struct {
	Slot int    // header slot that receives the payload ID
	Data []byte // caller memory, referenced until the record is published
	NUL  bool   // store a terminating NUL after Data
}

// Staging collects a record outside the ring lock.
type Staging struct {
	Header   Header
	Deferred []Deferred
	Pointers []uint64 // pointer IDs bound for this record
	Cells    uint32   // header plus payload cells
}

// StagingPool reuses Staging values for one cell size to avoid per-message
// allocation on the producer path.
type StagingPool struct {
	pool sync.Pool
}

// NewStagingPool creates a pool of staging records for the given cell size.
func NewStagingPool(cellSize, argsMax int) *StagingPool {
	p := &StagingPool{}
	p.pool.New = func() any {
		return &Staging{
			Header:   make(Header, cellSize),
			Deferred: make([]Deferred, 0, argsMax),
			Pointers: make([]uint64, 0, argsMax),
		}
	}
	return p
}

// Get retrieves a cleared Staging from the pool.
func (p *StagingPool) Get() *Staging {
	s := p.pool.Get().(*Staging)
	s.Header.Reset()
	s.Deferred = s.Deferred[:0]
	s.Pointers = s.Pointers[:0]
	s.Cells = 1
	return s
}

// Put returns s to the pool, dropping references to caller memory.
func (p *StagingPool) Put(s *Staging) {
	clear(s.Deferred)
	p.pool.Put(s)
}
