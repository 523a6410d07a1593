// Package core implements the agent side of the log pipeline. Producers
// record a format handle and raw arguments in a shared ring without
// formatting anything; a single drainer turns the oldest record into its
// network form and frees it.
//
// Producers never fail: a message that cannot be stored is dropped and
// counted in monitor.Stats.
package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
	"github.com/oktetlabs/test-environment-sub029/internal/indirect"
	"github.com/oktetlabs/test-environment-sub029/internal/intern"
	"github.com/oktetlabs/test-environment-sub029/internal/monitor"
	"github.com/oktetlabs/test-environment-sub029/internal/wire"
)

// ErrConfig is returned for unusable logger configurations.
var ErrConfig = errors.New("core: invalid configuration")

// Policy selects what happens when the ring is full.
type Policy int

const (
	// DropNewest discards the incoming message.
	DropNewest Policy = iota
	// DropOldest evicts the head record unless it is being drained.
	DropOldest
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if p == DropOldest {
		return "drop_oldest"
	}
	return "drop_newest"
}

// ParsePolicy converts a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "drop_newest", "newest", "":
		return DropNewest, nil
	case "drop_oldest", "oldest":
		return DropOldest, nil
	default:
		return DropNewest, fmt.Errorf("%w: unknown policy %q", ErrConfig, s)
	}
}

// Config describes a logger.
type Config struct {
	BigMessages         int // ring sizing: number of large messages
	BigMessageLen       int // ring sizing: bytes per large message
	ArgsMax             int // argument slots per header
	Policy              Policy
	PinnedHeadRespected bool // must be true; a pinned head is never evicted
	Protocol            wire.Protocol
	IndirectionCapacity int // per table; 0 means one entry per argument slot of the ring
	Entity              string

	Strings *intern.Table    // optional shared string table
	Stats   *monitor.Stats   // optional
	Clock   func() time.Time // optional
}

// DefaultConfig returns the stock agent configuration.
func DefaultConfig() Config {
	return Config{
		BigMessages:         1000,
		BigMessageLen:       3597,
		ArgsMax:             buffer.MinArgs,
		Policy:              DropNewest,
		PinnedHeadRespected: true,
		Protocol:            wire.Default,
	}
}

// Logger owns one ring and its drainer state.
type Logger struct {
	cfg      Config
	ring     *buffer.Ring
	strs     *intern.Table
	ptrs     *indirect.Table[uintptr]
	payloads *indirect.Table[buffer.Payload]
	staging  *buffer.StagingPool
	stats    *monitor.Stats
	force    bool
	dynFmt   intern.Handle

	// drainer state, guarded by drainMu
	drainMu sync.Mutex
	hdr     buffer.Header
	enc     *wire.Encoder
	ptrIDs  []indirect.ID
	payIDs  []indirect.ID
}

// New validates cfg and allocates the ring.
func New(cfg Config) (*Logger, error) {
	if cfg.BigMessages <= 0 || cfg.BigMessageLen <= 0 {
		return nil, fmt.Errorf("%w: ring size %d x %d", ErrConfig, cfg.BigMessages, cfg.BigMessageLen)
	}
	if cfg.ArgsMax < buffer.MinArgs {
		return nil, fmt.Errorf("%w: args_max %d below %d", ErrConfig, cfg.ArgsMax, buffer.MinArgs)
	}
	if !cfg.PinnedHeadRespected {
		return nil, fmt.Errorf("%w: pinned head must be respected", ErrConfig)
	}
	if err := cfg.Protocol.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	cellSize := buffer.CellSizeFor(cfg.ArgsMax)
	total := cfg.BigMessages * cfg.BigMessageLen / cellSize
	ring, err := buffer.NewRing(total, cellSize, cfg.Protocol.MaxField())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	// Every argument slot of every cell may hold an ID.
	capacity := cfg.IndirectionCapacity
	if capacity <= 0 {
		capacity = total * cfg.ArgsMax
	}
	if cfg.Strings == nil {
		cfg.Strings = intern.New(cfg.Protocol.MaxField())
	}
	if cfg.Stats == nil {
		cfg.Stats = monitor.NewStats()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	l := &Logger{
		cfg:      cfg,
		ring:     ring,
		strs:     cfg.Strings,
		ptrs:     indirect.New[uintptr](capacity),
		payloads: indirect.New[buffer.Payload](capacity),
		staging:  buffer.NewStagingPool(cellSize, cfg.ArgsMax),
		stats:    cfg.Stats,
		force:    cfg.Policy == DropOldest,
		hdr:      make(buffer.Header, cellSize),
		enc:      wire.NewEncoder(cfg.Protocol, nil),
		ptrIDs:   make([]indirect.ID, 0, cfg.ArgsMax),
		payIDs:   make([]indirect.ID, 0, cfg.ArgsMax),
	}
	if l.dynFmt, err = l.strs.Intern("%s"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	ring.OnEvict(l.evicted)
	return l, nil
}

// Strings returns the table that user and format handles refer to.
func (l *Logger) Strings() *intern.Table { return l.strs }

// Intern is shorthand for Strings().Intern.
func (l *Logger) Intern(s string) (intern.Handle, error) { return l.strs.Intern(s) }

// Stats returns the logger counters.
func (l *Logger) Stats() *monitor.Stats { return l.stats }

// Protocol returns the wire widths used by Drain.
func (l *Logger) Protocol() wire.Protocol { return l.cfg.Protocol }

// Entity returns the configured entity name.
func (l *Logger) Entity() string { return l.cfg.Entity }

// RingStats snapshots the ring indices.
func (l *Logger) RingStats() buffer.RingStats {
	l.ring.Lock()
	defer l.ring.Unlock()
	return l.ring.Stats()
}

// CheckRing verifies the ring invariants.
func (l *Logger) CheckRing() error {
	l.ring.Lock()
	defer l.ring.Unlock()
	return l.ring.Check()
}

// LiveIDs returns the pointer and payload IDs currently bound.
func (l *Logger) LiveIDs() (pointers, payloads int) {
	return l.ptrs.Len(), l.payloads.Len()
}

// Close stops the logger. Later emits are dropped and drains return 0.
func (l *Logger) Close() error {
	l.ring.Lock()
	l.ring.Close()
	l.ring.Unlock()
	return nil
}
