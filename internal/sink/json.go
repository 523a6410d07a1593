package sink

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// jsonRecord is the JSON Lines form of a record.
type jsonRecord struct {
	Seq       uint32 `json:"seq"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	User      string `json:"user"`
	Format    string `json:"format"`
	Message   string `json:"message"`
}

// JSONSink writes one JSON object per line.
type JSONSink struct {
	w   io.Writer
	buf []byte
}

// NewJSONSink creates a JSON Lines sink writing to w, or stdout if w is nil.
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONSink{w: w}
}

// Write serializes r as a single line.
func (s *JSONSink) Write(r *entry.Record) error {
	b, err := sonnet.Marshal(jsonRecord{
		Seq:       r.Seq,
		Timestamp: r.Timestamp().UTC().Format(time.RFC3339Nano),
		Level:     r.Level.String(),
		User:      r.User,
		Format:    r.Fmt,
		Message:   r.Message(),
	})
	if err != nil {
		return fmt.Errorf("sink: marshal record %d: %w", r.Seq, err)
	}
	s.buf = append(append(s.buf[:0], b...), '\n')
	_, err = s.w.Write(s.buf)
	return err
}

// Flush is a no-op.
func (s *JSONSink) Flush() error { return nil }

// Close is a no-op.
func (s *JSONSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *JSONSink) Name() string { return "json" }

// FileSink writes records to a file through a text or JSON formatter.
type FileSink struct {
	inner Sink
	file  *os.File
}

// NewFileSink opens path for appending. format is "json" or "text".
func NewFileSink(path, format string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	var inner Sink
	if format == "json" {
		inner = NewJSONSink(f)
	} else {
		inner = NewTerminalSink(f, false)
	}
	return &FileSink{inner: inner, file: f}, nil
}

// Write delegates to the formatter.
func (s *FileSink) Write(r *entry.Record) error { return s.inner.Write(r) }

// Flush syncs the file to disk.
func (s *FileSink) Flush() error { return s.file.Sync() }

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	if err := s.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// Name returns the sink identifier.
func (s *FileSink) Name() string { return "file:" + s.file.Name() }
