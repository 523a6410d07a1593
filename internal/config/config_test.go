package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oktetlabs/test-environment-sub029/internal/core"
	"github.com/oktetlabs/test-environment-sub029/internal/wire"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Ring.BigMessages)
	assert.Equal(t, 3597, cfg.Ring.BigMessageLen)
	assert.Equal(t, 12, cfg.Ring.ArgsMax)
	assert.Equal(t, "drop_newest", cfg.Ring.Policy)
	assert.Equal(t, wire.Default, cfg.Wire())
	assert.Equal(t, 50*time.Millisecond, cfg.Drain.Interval)

	cc, err := cfg.Core()
	require.NoError(t, err)
	assert.True(t, cc.PinnedHeadRespected)
	assert.Equal(t, core.DropNewest, cc.Policy)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entity: Agt_B
ring:
  big_messages: 10
  big_message_len: 1024
  args_max: 16
  policy: drop_oldest
protocol:
  level_width: 4
  nfl_width: 1
drain:
  buffer_size: 4096
  interval: 5ms
  burst: 4
metrics:
  enabled: true
  addr: 127.0.0.1:9999
log:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Agt_B", cfg.Entity)
	assert.Equal(t, 5*time.Millisecond, cfg.Drain.Interval)
	assert.True(t, cfg.Metrics.Enabled)

	cc, err := cfg.Core()
	require.NoError(t, err)
	assert.Equal(t, core.DropOldest, cc.Policy)
	assert.Equal(t, 16, cc.ArgsMax)
	assert.Equal(t, wire.Protocol{LevelWidth: 4, NFLWidth: 1}, cc.Protocol)

	l, err := core.New(cc)
	require.NoError(t, err)
	assert.Equal(t, uint32(10*1024/160), l.RingStats().Total)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestUnknownFieldRejected(t *testing.T) {
	_, err := Parse([]byte("ring:\n  cells: 4\n"))
	assert.Error(t, err)
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"args", "ring: {args_max: 8}"},
		{"policy", "ring: {policy: block}"},
		{"pinned", "ring: {pinned_head_respected: false}"},
		{"tiny", "ring: {big_messages: 1, big_message_len: 64}"},
		{"width", "protocol: {nfl_width: 3}"},
		{"buffer", "drain: {buffer_size: 8}"},
		{"burst", "drain: {burst: -1}"},
		{"log", "log: {level: loud}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
			_, err = cfg.Core()
			assert.Error(t, err)
		})
	}
}
