package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/oktetlabs/test-environment-sub029/internal/core"
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/filter"
	"github.com/oktetlabs/test-environment-sub029/internal/sink"
	"github.com/oktetlabs/test-environment-sub029/internal/wire"
)

const (
	defaultBufferSize = 64 * 1024
	maxBufferSize     = 16 * 1024 * 1024
)

// Drainer polls a logger at a limited rate and delivers decoded records.
type Drainer struct {
	l       *core.Logger
	proto   wire.Protocol
	buf     []byte
	limiter *rate.Limiter
	filters *filter.Chain
	sinks   []sink.Sink
	raw     *sink.RawSink
	log     *logrus.Logger
	written uint64
}

// NewDrainer creates a drainer from the logger, output and pacing fields
// of cfg.
func NewDrainer(cfg *Config) *Drainer {
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Drainer{
		l:       cfg.Logger,
		proto:   cfg.Logger.Protocol(),
		buf:     make([]byte, size),
		limiter: rate.NewLimiter(rate.Every(interval), burst),
		filters: cfg.Filters,
		sinks:   cfg.Sinks,
		raw:     cfg.Raw,
		log:     log,
	}
}

// Step drains one batch and returns the number of records decoded.
func (d *Drainer) Step() (int, error) {
	n, _, err := d.step()
	return n, err
}

// step also reports whether the buffer had to grow to fit the head record.
func (d *Drainer) step() (int, bool, error) {
	short := d.l.Stats().ShortBuffers()
	n := d.l.DrainBatch(d.buf)
	if n == 0 {
		if d.l.Stats().ShortBuffers() != short {
			return 0, true, d.grow()
		}
		return 0, false, nil
	}

	if d.raw != nil {
		if err := d.raw.WriteRaw(d.buf[:n]); err != nil {
			return 0, false, fmt.Errorf("pipeline: raw sink: %w", err)
		}
	}

	b := d.buf[:n]
	records := 0
	for len(b) > 0 {
		rec, k, err := wire.Unmarshal(d.proto, b)
		if err != nil {
			return records, false, fmt.Errorf("pipeline: decode: %w", err)
		}
		b = b[k:]
		records++
		if err := d.deliver(rec); err != nil {
			return records, false, err
		}
	}
	return records, false, nil
}

func (d *Drainer) deliver(rec *entry.Record) error {
	if !d.filters.Match(rec) {
		return nil
	}
	d.written++
	for _, s := range d.sinks {
		if err := s.Write(rec); err != nil {
			return fmt.Errorf("pipeline: write to %s: %w", s.Name(), err)
		}
	}
	return nil
}

// grow doubles the buffer when the head record does not fit in it.
func (d *Drainer) grow() error {
	if len(d.buf) >= maxBufferSize {
		return fmt.Errorf("pipeline: record larger than %d bytes", maxBufferSize)
	}
	d.log.WithField("size", 2*len(d.buf)).Warn("pipeline: growing drain buffer")
	d.buf = make([]byte, 2*len(d.buf))
	return nil
}

// Run polls until done is closed and the ring is empty. Cancelling ctx
// stops polling after one last unpaced pass over what is queued.
func (d *Drainer) Run(ctx context.Context, done <-chan struct{}) error {
	for {
		if err := d.limiter.Wait(ctx); err != nil {
			return d.Flush()
		}
		n, grew, err := d.step()
		if err != nil {
			return err
		}
		if n > 0 || grew {
			continue
		}
		select {
		case <-done:
			return d.Flush()
		default:
		}
	}
}

// Flush drains without pacing until the ring is empty.
func (d *Drainer) Flush() error {
	for {
		n, grew, err := d.step()
		if err != nil {
			return err
		}
		if n == 0 && !grew {
			return nil
		}
	}
}

// Written returns the number of records that passed the filters.
func (d *Drainer) Written() uint64 { return d.written }

// Close flushes and closes the sinks.
func (d *Drainer) Close() error {
	var errs []error
	for _, s := range d.sinks {
		errs = append(errs, s.Flush(), s.Close())
	}
	if d.raw != nil {
		errs = append(errs, d.raw.Close())
	}
	return errors.Join(errs...)
}
