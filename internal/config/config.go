// Package config loads the log pipeline configuration from YAML with
// strict decoding and explicit defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oktetlabs/test-environment-sub029/internal/core"
	"github.com/oktetlabs/test-environment-sub029/internal/wire"
)

// Config holds the complete pipeline configuration.
type Config struct {
	Entity   string         `yaml:"entity"`
	Ring     RingConfig     `yaml:"ring"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Drain    DrainConfig    `yaml:"drain"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// RingConfig sizes the ring and selects the overflow policy.
type RingConfig struct {
	BigMessages         int    `yaml:"big_messages"`
	BigMessageLen       int    `yaml:"big_message_len"`
	ArgsMax             int    `yaml:"args_max"`
	Policy              string `yaml:"policy"` // drop_newest or drop_oldest
	PinnedHeadRespected *bool  `yaml:"pinned_head_respected,omitempty"`
	IndirectionCapacity int    `yaml:"indirection_capacity,omitempty"`
}

// ProtocolConfig sets the wire field widths.
type ProtocolConfig struct {
	LevelWidth int `yaml:"level_width"`
	NFLWidth   int `yaml:"nfl_width"`
}

// DrainConfig paces the drainer loop.
type DrainConfig struct {
	BufferSize int           `yaml:"buffer_size"`
	Interval   time.Duration `yaml:"interval"`
	Burst      int           `yaml:"burst"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controls operational logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, rejecting unknown fields, and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	def := core.DefaultConfig()
	if c.Entity == "" {
		c.Entity = "Agt"
	}
	if c.Ring.BigMessages == 0 {
		c.Ring.BigMessages = def.BigMessages
	}
	if c.Ring.BigMessageLen == 0 {
		c.Ring.BigMessageLen = def.BigMessageLen
	}
	if c.Ring.ArgsMax == 0 {
		c.Ring.ArgsMax = def.ArgsMax
	}
	if c.Ring.Policy == "" {
		c.Ring.Policy = def.Policy.String()
	}
	if c.Ring.PinnedHeadRespected == nil {
		v := true
		c.Ring.PinnedHeadRespected = &v
	}
	if c.Protocol.LevelWidth == 0 {
		c.Protocol.LevelWidth = wire.Default.LevelWidth
	}
	if c.Protocol.NFLWidth == 0 {
		c.Protocol.NFLWidth = wire.Default.NFLWidth
	}
	if c.Drain.BufferSize == 0 {
		c.Drain.BufferSize = 64 * 1024
	}
	if c.Drain.Interval == 0 {
		c.Drain.Interval = 50 * time.Millisecond
	}
	if c.Drain.Burst == 0 {
		c.Drain.Burst = 1
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9464"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Core builds the logger configuration.
func (c *Config) Core() (core.Config, error) {
	if err := c.Validate(); err != nil {
		return core.Config{}, err
	}
	policy, _ := core.ParsePolicy(c.Ring.Policy)
	return core.Config{
		BigMessages:         c.Ring.BigMessages,
		BigMessageLen:       c.Ring.BigMessageLen,
		ArgsMax:             c.Ring.ArgsMax,
		Policy:              policy,
		PinnedHeadRespected: *c.Ring.PinnedHeadRespected,
		Protocol:            c.Wire(),
		IndirectionCapacity: c.Ring.IndirectionCapacity,
		Entity:              c.Entity,
	}, nil
}

// Wire returns the configured protocol widths.
func (c *Config) Wire() wire.Protocol {
	return wire.Protocol{LevelWidth: c.Protocol.LevelWidth, NFLWidth: c.Protocol.NFLWidth}
}
