// Package monitor provides real-time statistics collection for the log
// ring: emission, drop and drain counters, Prometheus export and burst
// detection.
package monitor

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// DropReason explains why a producer discarded a message.
type DropReason int

const (
	DropFull     DropReason = iota // ring full under drop_newest
	DropPinned                     // ring full and the head is being drained
	DropPayload                    // no room for an out-of-line argument
	DropOversize                   // record larger than the whole ring
	DropIDs                        // indirection table exhausted
	DropClosed                     // logger shut down
	numDropReasons
)

// DropReasons lists every reason in order.
func DropReasons() []DropReason {
	out := make([]DropReason, numDropReasons)
	for i := range out {
		out[i] = DropReason(i)
	}
	return out
}

// String returns the reason label.
func (r DropReason) String() string {
	switch r {
	case DropFull:
		return "full"
	case DropPinned:
		return "pinned"
	case DropPayload:
		return "payload"
	case DropOversize:
		return "oversize"
	case DropIDs:
		return "ids"
	case DropClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats collects log ring metrics in a lock-free manner.
type Stats struct {
	emitted      atomic.Uint64
	drained      atomic.Uint64
	drainedBytes atomic.Uint64
	shortBuffer  atomic.Uint64
	evicted      atomic.Uint64
	dropped      [numDropReasons]atomic.Uint64
	startTime    time.Time
}

// NewStats creates a new statistics collector.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// RecordEmit counts a message stored in the ring.
func (s *Stats) RecordEmit() {
	s.emitted.Add(1)
}

// RecordDrop counts a discarded message.
func (s *Stats) RecordDrop(r DropReason) {
	if r >= 0 && r < numDropReasons {
		s.dropped[r].Add(1)
	}
}

// RecordEvict counts a record overwritten under drop_oldest.
func (s *Stats) RecordEvict() {
	s.evicted.Add(1)
}

// RecordDrain counts one drained record of n wire bytes.
func (s *Stats) RecordDrain(n int) {
	s.drained.Add(1)
	s.drainedBytes.Add(uint64(n))
}

// RecordShortBuffer counts a drain that did not fit the caller's buffer.
func (s *Stats) RecordShortBuffer() {
	s.shortBuffer.Add(1)
}

// Emitted returns the number of messages stored.
func (s *Stats) Emitted() uint64 { return s.emitted.Load() }

// Dropped returns the drops for one reason.
func (s *Stats) Dropped(r DropReason) uint64 {
	if r < 0 || r >= numDropReasons {
		return 0
	}
	return s.dropped[r].Load()
}

// DroppedTotal returns the drops for all reasons.
func (s *Stats) DroppedTotal() uint64 {
	var n uint64
	for i := range s.dropped {
		n += s.dropped[i].Load()
	}
	return n
}

// Evicted returns the number of records overwritten.
func (s *Stats) Evicted() uint64 { return s.evicted.Load() }

// Drained returns the number of records drained.
func (s *Stats) Drained() uint64 { return s.drained.Load() }

// DrainedBytes returns the wire bytes produced by the drainer.
func (s *Stats) DrainedBytes() uint64 { return s.drainedBytes.Load() }

// ShortBuffers returns the number of drains refused for lack of room.
func (s *Stats) ShortBuffers() uint64 { return s.shortBuffer.Load() }

// Elapsed returns the time since monitoring started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// Rate returns the current drained records per second.
func (s *Stats) Rate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.Drained()) / elapsed
}

// Summary returns a formatted summary string.
func (s *Stats) Summary() string {
	var drops []string
	for _, r := range DropReasons() {
		if n := s.Dropped(r); n > 0 {
			drops = append(drops, fmt.Sprintf("%s=%d", r, n))
		}
	}
	dropDetail := "none"
	if len(drops) > 0 {
		dropDetail = strings.Join(drops, " ")
	}

	return fmt.Sprintf(
		"── Summary ──\n"+
			"  Emitted:     %d\n"+
			"  Dropped:     %d (%s)\n"+
			"  Evicted:     %d\n"+
			"  Drained:     %d records, %d bytes\n"+
			"  Duration:    %s\n"+
			"  Throughput:  %.0f records/s\n"+
			"─────────────",
		s.Emitted(),
		s.DroppedTotal(), dropDetail,
		s.Evicted(),
		s.Drained(), s.DrainedBytes(),
		s.Elapsed().Round(time.Millisecond),
		s.Rate(),
	)
}
