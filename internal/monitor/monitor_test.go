package monitor

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()
	s.RecordEmit()
	s.RecordEmit()
	s.RecordDrop(DropFull)
	s.RecordDrop(DropPinned)
	s.RecordDrop(DropPinned)
	s.RecordDrop(DropReason(99))
	s.RecordEvict()
	s.RecordDrain(40)
	s.RecordShortBuffer()

	assert.Equal(t, uint64(2), s.Emitted())
	assert.Equal(t, uint64(1), s.Dropped(DropFull))
	assert.Equal(t, uint64(2), s.Dropped(DropPinned))
	assert.Equal(t, uint64(3), s.DroppedTotal())
	assert.Equal(t, uint64(1), s.Evicted())
	assert.Equal(t, uint64(1), s.Drained())
	assert.Equal(t, uint64(40), s.DrainedBytes())
	assert.Equal(t, uint64(1), s.ShortBuffers())

	sum := s.Summary()
	assert.Contains(t, sum, "full=1 pinned=2")
	assert.Contains(t, sum, "1 records, 40 bytes")
}

func TestDropReasonNames(t *testing.T) {
	var names []string
	for _, r := range DropReasons() {
		names = append(names, r.String())
	}
	assert.Equal(t, []string{"full", "pinned", "payload", "oversize", "ids", "closed"}, names)
}

type fakeRing struct{ st buffer.RingStats }

func (f fakeRing) RingStats() buffer.RingStats { return f.st }

func TestMetricsExport(t *testing.T) {
	s := NewStats()
	s.RecordEmit()
	s.RecordDrop(DropOversize)
	log := logrus.New()
	log.SetOutput(io.Discard)
	m := NewMetrics(s, fakeRing{buffer.RingStats{Total: 10, Free: 4, Seq: 7}}, log)

	n, err := testutil.GatherAndCount(m.Registry(), "talog_records_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, len(DropReasons()), n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "talog_records_emitted_total 1")
	assert.Contains(t, body, `talog_records_dropped_total{reason="oversize"} 1`)
	assert.Contains(t, body, "talog_ring_cells_live 6")
	assert.Contains(t, body, "talog_ring_sequence 7")
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestRateDetector(t *testing.T) {
	clock := time.Unix(1000, 0)
	r := NewRateDetector(10*time.Second, 3)
	r.now = func() time.Time { return clock }

	for i := 0; i < 4; i++ {
		assert.False(t, r.Add(10))
		clock = clock.Add(time.Second)
	}
	assert.InDelta(t, 10.0, r.Rate(), 0.001)
	assert.False(t, r.Add(20))
	assert.True(t, r.Add(20), "40 in one second against an average of 10")
	assert.Equal(t, uint64(40), r.Current())

	clock = clock.Add(time.Minute)
	assert.Zero(t, r.Current())
	assert.Zero(t, r.Rate())
}
