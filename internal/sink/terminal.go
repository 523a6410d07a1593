package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// TerminalSink writes one text line per record with optional ANSI color.
type TerminalSink struct {
	w     io.Writer
	color bool
}

// NewTerminalSink creates a sink writing to w, or stdout if w is nil.
func NewTerminalSink(w io.Writer, color bool) *TerminalSink {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalSink{w: w, color: color}
}

// Write prints the record as [time][seq][user][LEVEL]: message.
func (s *TerminalSink) Write(r *entry.Record) error {
	ts := r.Timestamp().UTC().Format("15:04:05.000000")
	if !s.color {
		_, err := fmt.Fprintf(s.w, "[%s][%d][%s][%s]: %s\n", ts, r.Seq, r.User, r.Level, r.Message())
		return err
	}
	_, err := fmt.Fprintf(s.w, "%s[%s][%d]%s[%s]%s[%s]%s: %s\n",
		colorGray, ts, r.Seq, colorReset,
		r.User,
		levelColor(r.Level), r.Level, colorReset,
		r.Message(),
	)
	return err
}

// Flush is a no-op.
func (s *TerminalSink) Flush() error { return nil }

// Close is a no-op.
func (s *TerminalSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *TerminalSink) Name() string { return "terminal" }

func levelColor(l entry.Level) string {
	switch l {
	case entry.LevelError:
		return colorBold + colorRed
	case entry.LevelWarn:
		return colorYellow
	case entry.LevelVerb, entry.LevelEntryExit, entry.LevelPacket:
		return colorGray
	default:
		return colorCyan
	}
}
