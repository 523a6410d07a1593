// Package buffer implements the fixed-capacity cell ring that holds log
// records between producers and the drainer.
//
// A record is one header cell followed by the cells of its out-of-line
// payloads, all contiguous modulo the ring size. The ring owns no knowledge
// of formats; callers describe each record through its header and the
// Payload handles returned by ReservePayload.
package buffer

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrGeometry is returned for unusable ring dimensions.
	ErrGeometry = errors.New("buffer: invalid ring geometry")
	// ErrCorrupt is returned by Check when the ring state is inconsistent.
	ErrCorrupt = errors.New("buffer: ring invariant violated")
)

const maxCells = 1 << 30

var nulByte = []byte{0}

// Payload locates bytes copied into the ring.
type Payload struct {
	Start uint32 // first cell
	Cells uint32 // cells allocated
	Len   uint32 // bytes stored, including a terminating NUL if any
}

// RingStats is a point-in-time view of the ring indices.
type RingStats struct {
	Total   uint32
	Free    uint32
	Head    uint32
	Tail    uint32
	Seq     uint32
	Evicted uint64
}

// Live returns the number of occupied cells.
func (s RingStats) Live() uint32 { return s.Total - s.Free }

// Ring is a circular array of fixed-size cells.
//
// Every method except Segments and ReadInto requires the ring lock; Ring
// implements sync.Locker for that purpose. Segments and ReadInto may be used
// without the lock on cells of a marked head record.
type Ring struct {
	mu       sync.Mutex
	cells    []byte
	cellSize int
	maxField int

	total uint32
	head  uint32 // oldest record
	tail  uint32 // next free cell
	free  uint32
	seq   uint32

	closed  bool
	evicted uint64
	onEvict func(Header)
}

// NewRing allocates a ring of total cells of cellSize bytes each. Payloads
// are capped at maxField bytes.
func NewRing(total, cellSize, maxField int) (*Ring, error) {
	if total <= 0 || total > maxCells {
		return nil, fmt.Errorf("%w: %d cells", ErrGeometry, total)
	}
	if cellSize < CellSizeFor(1) {
		return nil, fmt.Errorf("%w: cell size %d", ErrGeometry, cellSize)
	}
	if maxField <= 0 {
		return nil, fmt.Errorf("%w: max field %d", ErrGeometry, maxField)
	}
	return &Ring{
		cells:    make([]byte, total*cellSize),
		cellSize: cellSize,
		maxField: maxField,
		total:    uint32(total),
		free:     uint32(total),
	}, nil
}

// Lock acquires the ring lock.
func (r *Ring) Lock() { r.mu.Lock() }

// Unlock releases the ring lock.
func (r *Ring) Unlock() { r.mu.Unlock() }

// Total returns the number of cells.
func (r *Ring) Total() uint32 { return r.total }

// CellSize returns the size of one cell in bytes.
func (r *Ring) CellSize() int { return r.cellSize }

// CellsFor returns the cells a payload of n stored bytes occupies.
func (r *Ring) CellsFor(n int) uint32 {
	if n > r.maxField {
		n = r.maxField
	}
	return uint32((n + r.cellSize - 1) / r.cellSize)
}

// OnEvict registers fn to be called, under the ring lock, with the header
// of every record discarded to make room for a new one.
func (r *Ring) OnEvict(fn func(Header)) { r.onEvict = fn }

// Head returns the index of the oldest record.
func (r *Ring) Head() uint32 { return r.head }

// Free returns the number of unoccupied cells.
func (r *Ring) Free() uint32 { return r.free }

// Empty reports whether there is nothing to drain.
func (r *Ring) Empty() bool { return r.closed || r.free == r.total }

// Closed reports whether Close was called.
func (r *Ring) Closed() bool { return r.closed }

// Close stops all further reservations.
func (r *Ring) Close() { r.closed = true }

// Header returns a view of the header cell at idx.
func (r *Ring) Header(idx uint32) Header {
	off := int(idx) * r.cellSize
	return Header(r.cells[off : off+r.cellSize : off+r.cellSize])
}

// Span returns the cell count of the record headed at idx.
func (r *Ring) Span(idx uint32) uint32 { return r.Header(idx).Span() }

// SetMark pins or unpins the record headed at idx.
func (r *Ring) SetMark(idx uint32, v bool) { r.Header(idx).SetMark(v) }

// ReserveHeader claims the tail cell for a new record header and stamps it
// with the next sequence number. When the ring is full and force is set, the
// head record is evicted unless it is marked. The sequence number is consumed
// even when the reservation fails.
func (r *Ring) ReserveHeader(force bool) (uint32, bool) {
	if r.closed {
		return 0, false
	}
	r.seq++
	if r.free == 0 {
		if !force || r.Header(r.head).Marked() {
			return 0, false
		}
		r.evictHead()
	}

	idx := r.tail
	h := r.Header(idx)
	h.Reset()
	h.SetSpan(1)
	h.SetSeq(r.seq)
	r.tail = r.next(r.tail, 1)
	r.free--
	return idx, true
}

func (r *Ring) evictHead() {
	h := r.Header(r.head)
	if r.onEvict != nil {
		r.onEvict(h)
	}
	span := h.Span()
	r.head = r.next(r.head, span)
	r.free += span
	r.evicted++
}

// ReservePayload copies p, plus a terminating NUL when nul is set, into
// cells taken from the tail. The stored length is capped at the maximum
// field length. It never evicts and never touches a header span.
func (r *Ring) ReservePayload(p []byte, nul bool) (Payload, bool) {
	n := len(p)
	if nul {
		n++
	}
	if n > r.maxField {
		n = r.maxField
	}
	cells := uint32((n + r.cellSize - 1) / r.cellSize)
	if r.closed || cells > r.free {
		return Payload{}, false
	}

	pl := Payload{Start: r.tail, Cells: cells, Len: uint32(n)}
	data := p
	if len(data) > n {
		data = data[:n]
	}
	off := r.copyIn(int(r.tail)*r.cellSize, data)
	if len(data) < n {
		r.copyIn(off, nulByte)
	}
	r.tail = r.next(r.tail, cells)
	r.free -= cells
	return pl, true
}

// copyIn writes src at byte offset off, wrapping at the physical end, and
// returns the offset following the last byte written.
func (r *Ring) copyIn(off int, src []byte) int {
	k := copy(r.cells[off:], src)
	if k < len(src) {
		return copy(r.cells, src[k:])
	}
	off += k
	if off == len(r.cells) {
		off = 0
	}
	return off
}

// Segments returns the stored bytes of p as at most two slices of ring
// memory, the second being the part that wrapped to the start.
func (r *Ring) Segments(p Payload) (first, second []byte) {
	if p.Len == 0 {
		return nil, nil
	}
	off := int(p.Start) * r.cellSize
	end := off + int(p.Len)
	if end <= len(r.cells) {
		return r.cells[off:end], nil
	}
	return r.cells[off:], r.cells[:end-len(r.cells)]
}

// ReadInto copies n cells starting at idx into dst, wrapping at the
// physical end, and returns the number of bytes copied.
func (r *Ring) ReadInto(idx, n uint32, dst []byte) int {
	size := int(n) * r.cellSize
	if size > len(dst) {
		size = len(dst)
	}
	k := copy(dst[:size], r.cells[int(idx)*r.cellSize:])
	if k < size {
		k += copy(dst[k:size], r.cells)
	}
	return k
}

// ReleaseHead frees the head record and returns its span.
func (r *Ring) ReleaseHead() uint32 {
	if r.free == r.total {
		return 0
	}
	span := r.Header(r.head).Span()
	r.head = r.next(r.head, span)
	r.free += span
	return span
}

// Rewind returns the cells of a record being built at idx, which must be the
// most recent reservation, to the free space.
func (r *Ring) Rewind(idx, cells uint32) {
	r.tail = idx
	r.free += cells
}

// Stats snapshots the ring indices.
func (r *Ring) Stats() RingStats {
	return RingStats{
		Total:   r.total,
		Free:    r.free,
		Head:    r.head,
		Tail:    r.tail,
		Seq:     r.seq,
		Evicted: r.evicted,
	}
}

// Check walks the records from head and verifies that spans tile exactly
// the occupied cells, that sequence numbers increase and that at most one
// record is marked.
func (r *Ring) Check() error {
	if r.head >= r.total || r.tail >= r.total || r.free > r.total {
		return fmt.Errorf("%w: head %d tail %d free %d of %d", ErrCorrupt, r.head, r.tail, r.free, r.total)
	}
	live := r.total - r.free
	pos := r.head
	marked := 0
	var sum, prev uint32
	for sum < live {
		h := r.Header(pos)
		span := h.Span()
		if span == 0 || span > live-sum {
			return fmt.Errorf("%w: record at %d spans %d with %d live cells left", ErrCorrupt, pos, span, live-sum)
		}
		if sum > 0 && int32(h.Seq()-prev) <= 0 {
			return fmt.Errorf("%w: seq %d at %d follows %d", ErrCorrupt, h.Seq(), pos, prev)
		}
		if h.Marked() {
			marked++
		}
		prev = h.Seq()
		sum += span
		pos = r.next(pos, span)
	}
	if pos != r.tail {
		return fmt.Errorf("%w: records end at %d, tail is %d", ErrCorrupt, pos, r.tail)
	}
	if marked > 1 {
		return fmt.Errorf("%w: %d marked records", ErrCorrupt, marked)
	}
	return nil
}

func (r *Ring) next(idx, n uint32) uint32 {
	idx += n
	if idx >= r.total {
		idx -= r.total
	}
	return idx
}
