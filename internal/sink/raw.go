package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// RawSink receives encoded wire bytes exactly as drained, standing in for
// the transport to the log collector.
type RawSink struct {
	w     *bufio.Writer
	c     io.Closer
	bytes uint64
}

// NewRawSink wraps w. If w is an io.Closer it is closed by Close.
func NewRawSink(w io.Writer) *RawSink {
	s := &RawSink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// CreateRawFile truncates or creates path for a raw stream.
func CreateRawFile(path string) (*RawSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: create %s: %w", path, err)
	}
	return NewRawSink(f), nil
}

// WriteRaw appends one drained chunk of whole records.
func (s *RawSink) WriteRaw(p []byte) error {
	n, err := s.w.Write(p)
	s.bytes += uint64(n)
	return err
}

// Bytes returns the number of bytes written so far.
func (s *RawSink) Bytes() uint64 { return s.bytes }

// Flush writes buffered bytes through.
func (s *RawSink) Flush() error { return s.w.Flush() }

// Close flushes and closes the underlying writer.
func (s *RawSink) Close() error {
	err := s.w.Flush()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
