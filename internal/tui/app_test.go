package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/monitor"
)

type fixedRing buffer.RingStats

func (f fixedRing) RingStats() buffer.RingStats { return buffer.RingStats(f) }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func rec(seq uint32, level entry.Level, msg string) RecordMsg {
	return RecordMsg{Record: &entry.Record{Seq: seq, Level: level, User: "app", Fmt: "%s", Fields: [][]byte{[]byte(msg)}}}
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestModelCountsAndRenders(t *testing.T) {
	stats := monitor.NewStats()
	stats.RecordEmit()
	stats.RecordDrop(monitor.DropFull)
	m := NewModel(stats, fixedRing{Total: 10, Free: 1, Head: 3, Tail: 2, Seq: 9}, "stdin")
	m = update(t, m,
		tea.WindowSizeMsg{Width: 160, Height: 20},
		rec(1, entry.LevelError, "disk full"),
		rec(2, entry.LevelInfo, "hello"),
	)

	view := m.View()
	assert.Contains(t, view, "talog: stdin")
	assert.Contains(t, view, "9/10 cells")
	assert.Contains(t, view, "disk full")
	assert.Contains(t, view, "ERR: 1")
	assert.Contains(t, view, "dropped 1")
	assert.Equal(t, 2, m.total)
}

func TestModelPauseQueues(t *testing.T) {
	m := NewModel(nil, nil, "x")
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 10}, runes("p"), rec(1, entry.LevelInfo, "queued"))
	assert.Empty(t, m.lines)
	assert.Len(t, m.pauseQueue, 1)

	m = update(t, m, runes("p"))
	assert.Len(t, m.lines, 1)
	assert.Empty(t, m.pauseQueue)
}

func TestModelSearchScrolls(t *testing.T) {
	m := NewModel(nil, nil, "x")
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 10})
	for i := uint32(0); i < 5; i++ {
		text := "plain"
		if i == 1 {
			text = "needle"
		}
		m = update(t, m, rec(i, entry.LevelInfo, text))
	}
	m = update(t, m, runes("/"), runes("need"), runes("le"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Equal(t, "needle", m.query)
	assert.Equal(t, 3, m.scrollPos)

	m = update(t, m, runes("g"))
	assert.Zero(t, m.scrollPos)
}

func TestModelTrimsAndQuits(t *testing.T) {
	m := NewModel(nil, nil, "x")
	m.maxLines = 3
	for i := uint32(0); i < 5; i++ {
		m = update(t, m, rec(i, entry.LevelVerb, "line"))
	}
	assert.Len(t, m.lines, 3)

	_, cmd := m.Update(runes("q"))
	assert.NotNil(t, cmd)

	m = update(t, m, DoneMsg{})
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 10})
	assert.True(t, strings.Contains(m.View(), "DONE"))
}

func TestOccupancyBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", occupancyBar(5, 10, 10))
	assert.Equal(t, "░░░░", occupancyBar(0, 10, 4))
}
