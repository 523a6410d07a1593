// Package tui renders a live dashboard of drained records next to the ring
// occupancy and producer counters.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/monitor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E7D6B")).
			PaddingLeft(1).
			PaddingRight(1)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#353533"))

	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#44AAFF"))
	verbStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	markStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	fullStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
	normalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#44CC88"))
)

// RecordMsg delivers a drained record.
type RecordMsg struct{ Record *entry.Record }

// SpikeMsg reports a drain rate spike.
type SpikeMsg struct{ Rate uint64 }

// TickMsg refreshes the counters.
type TickMsg time.Time

// DoneMsg reports that the pipeline stopped.
type DoneMsg struct{ Err error }

// RingSource snapshots ring occupancy.
type RingSource interface {
	RingStats() buffer.RingStats
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	lines      []string
	maxLines   int
	width      int
	height     int
	scrollPos  int // 0 follows the newest line
	paused     bool
	pauseQueue []string

	searching bool
	query     string

	stats  *monitor.Stats
	ring   RingSource
	source string
	ringSt buffer.RingStats

	levels map[entry.Level]int
	total  int

	notice      string
	noticeTicks int
	done        bool
	err         error
}

// NewModel creates a dashboard for the named source.
func NewModel(stats *monitor.Stats, ring RingSource, source string) Model {
	m := Model{
		maxLines: 1000,
		stats:    stats,
		ring:     ring,
		source:   source,
		levels:   make(map[entry.Level]int),
	}
	if ring != nil {
		m.ringSt = ring.RingStats()
	}
	return m
}

// Init starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), tea.WindowSize())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m.handleKey(msg)
	case RecordMsg:
		m.addRecord(msg.Record)
	case SpikeMsg:
		m.notice = fmt.Sprintf("SPIKE: %d records/s drained", msg.Rate)
		m.noticeTicks = 8
	case TickMsg:
		if m.noticeTicks > 0 {
			m.noticeTicks--
		}
		if m.ring != nil {
			m.ringSt = m.ring.RingStats()
		}
		return m, tick()
	case DoneMsg:
		m.done, m.err = true, msg.Err
		if m.ring != nil {
			m.ringSt = m.ring.RingStats()
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.Type {
		case tea.KeyEsc:
			m.searching, m.query = false, ""
		case tea.KeyEnter:
			m.searching = false
			m.jumpToMatch()
		case tea.KeyBackspace:
			if len(m.query) > 0 {
				m.query = m.query[:len(m.query)-1]
			}
		case tea.KeySpace:
			m.query += " "
		case tea.KeyRunes:
			m.query += string(msg.Runes)
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
		if !m.paused {
			m.lines = append(m.lines, m.pauseQueue...)
			m.pauseQueue = nil
			m.trim()
		}
	case "/":
		m.searching, m.query = true, ""
	case "up", "k":
		if m.scrollPos < len(m.lines)-1 {
			m.scrollPos++
		}
	case "down", "j":
		if m.scrollPos > 0 {
			m.scrollPos--
		}
	case "g":
		m.scrollPos = 0
	case "G":
		m.scrollPos = max(len(m.lines)-1, 0)
	}
	return m, nil
}

func (m *Model) addRecord(r *entry.Record) {
	m.total++
	m.levels[r.Level]++
	line := m.formatRecord(r)
	if m.paused {
		m.pauseQueue = append(m.pauseQueue, line)
		return
	}
	m.lines = append(m.lines, line)
	m.trim()
}

// View renders the dashboard.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	var sb strings.Builder

	title := titleStyle.Render(" talog: " + m.source + " ")
	state := "RUNNING"
	switch {
	case m.err != nil:
		state = "FAILED: " + m.err.Error()
	case m.done:
		state = "DONE"
	case m.paused:
		state = "PAUSED"
	}
	status := barStyle.Render(fmt.Sprintf(" %s  %d records ", state, m.total))
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(status), 0)
	sb.WriteString(title + barStyle.Render(strings.Repeat(" ", gap)) + status + "\n")
	sb.WriteString(m.ringLine() + "\n")

	header := 2
	if m.noticeTicks > 0 && m.notice != "" {
		sb.WriteString(markStyle.Render(m.notice) + "\n")
		header++
	}
	if m.searching {
		sb.WriteString(" Search: " + m.query + "█\n")
		header++
	}

	height := max(m.height-header-2, 1)
	visible := m.visible(height)
	for _, l := range visible {
		sb.WriteString(l + "\n")
	}
	for i := len(visible); i < height; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(barStyle.Render(padRight(m.countersLine(), m.width)) + "\n")
	help := " [/]Search  [p]Pause  [↑↓]Scroll  [g]Bottom  [q]Quit"
	if m.paused {
		help += fmt.Sprintf("  (queued: %d)", len(m.pauseQueue))
	}
	sb.WriteString(helpStyle.Render(help))
	return sb.String()
}

// ringLine shows cell occupancy and the head position.
func (m Model) ringLine() string {
	st := m.ringSt
	if st.Total == 0 {
		return " Ring: -"
	}
	live := st.Live()
	style := normalStyle
	if live*10 >= st.Total*9 {
		style = fullStyle
	}
	return fmt.Sprintf(" Ring: %s %d/%d cells │ head %d tail %d │ seq %d",
		style.Render(occupancyBar(live, st.Total, 20)), live, st.Total, st.Head, st.Tail, st.Seq)
}

func (m Model) countersLine() string {
	s := fmt.Sprintf(" ERR: %d │ WARN: %d │ INFO: %d", m.levels[entry.LevelError], m.levels[entry.LevelWarn], m.levels[entry.LevelInfo])
	if m.stats != nil {
		s += fmt.Sprintf(" │ emitted %d │ dropped %d │ evicted %d │ drained %d",
			m.stats.Emitted(), m.stats.DroppedTotal(), m.stats.Evicted(), m.stats.Drained())
	}
	if m.scrollPos > 0 {
		s += fmt.Sprintf(" │ ↑ %d", m.scrollPos)
	}
	return s
}

func (m *Model) formatRecord(r *entry.Record) string {
	style := verbStyle
	switch r.Level {
	case entry.LevelError:
		style = errorStyle
	case entry.LevelWarn:
		style = warnStyle
	case entry.LevelInfo, entry.LevelRing:
		style = infoStyle
	}
	ts := r.Timestamp().Format("15:04:05.000")
	return style.Render(fmt.Sprintf("%s %6d [%s] %s %s", ts, r.Seq, r.User, r.Level, truncate(r.Message(), m.width-40)))
}

func (m *Model) visible(height int) []string {
	end := max(len(m.lines)-m.scrollPos, 0)
	start := max(end-height, 0)
	out := make([]string, 0, end-start)
	for _, l := range m.lines[start:end] {
		if m.query != "" && !m.searching {
			l = strings.ReplaceAll(l, m.query, markStyle.Render(m.query))
		}
		out = append(out, l)
	}
	return out
}

// jumpToMatch scrolls to the newest line containing the query.
func (m *Model) jumpToMatch() {
	if m.query == "" {
		return
	}
	for i := len(m.lines) - 1; i >= 0; i-- {
		if strings.Contains(m.lines[i], m.query) {
			m.scrollPos = len(m.lines) - 1 - i
			return
		}
	}
}

func (m *Model) trim() {
	if n := len(m.lines) - m.maxLines; n > 0 {
		m.lines = m.lines[n:]
	}
}

func occupancyBar(used, total uint32, width int) string {
	filled := int(uint64(used) * uint64(width) / uint64(total))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
