package config

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
	"github.com/oktetlabs/test-environment-sub029/internal/core"
)

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Ring.Validate(); err != nil {
		return fmt.Errorf("ring config: %w", err)
	}
	if err := c.Wire().Validate(); err != nil {
		return fmt.Errorf("protocol config: %w", err)
	}
	if err := c.Drain.Validate(); err != nil {
		return fmt.Errorf("drain config: %w", err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

// Validate checks ring sizing and policy.
func (r *RingConfig) Validate() error {
	if r.BigMessages <= 0 {
		return fmt.Errorf("big_messages must be positive, got %d", r.BigMessages)
	}
	if r.BigMessageLen <= 0 {
		return fmt.Errorf("big_message_len must be positive, got %d", r.BigMessageLen)
	}
	if r.ArgsMax < buffer.MinArgs {
		return fmt.Errorf("args_max must be at least %d, got %d", buffer.MinArgs, r.ArgsMax)
	}
	if r.BigMessages*r.BigMessageLen < buffer.CellSizeFor(r.ArgsMax) {
		return fmt.Errorf("ring of %d bytes holds no %d-byte cell", r.BigMessages*r.BigMessageLen, buffer.CellSizeFor(r.ArgsMax))
	}
	if _, err := core.ParsePolicy(r.Policy); err != nil {
		return err
	}
	if r.PinnedHeadRespected != nil && !*r.PinnedHeadRespected {
		return fmt.Errorf("pinned_head_respected cannot be disabled")
	}
	if r.IndirectionCapacity < 0 {
		return fmt.Errorf("indirection_capacity must not be negative, got %d", r.IndirectionCapacity)
	}
	return nil
}

// Validate checks drainer pacing.
func (d *DrainConfig) Validate() error {
	if d.BufferSize < 64 {
		return fmt.Errorf("buffer_size must be at least 64, got %d", d.BufferSize)
	}
	if d.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", d.Interval)
	}
	if d.Burst <= 0 {
		return fmt.Errorf("burst must be positive, got %d", d.Burst)
	}
	return nil
}
