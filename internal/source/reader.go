package source

import (
	"context"
	"io"
	"os"
)

// ReaderSource reads lines from an io.Reader until EOF.
type ReaderSource struct {
	name   string
	stream string
	r      io.Reader
}

// NewReaderSource creates a source named name over r.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, stream: name, r: r}
}

// NewStdinSource reads from os.Stdin (pipe mode).
func NewStdinSource() *ReaderSource {
	return NewReaderSource("stdin", os.Stdin)
}

// Name returns the source identifier.
func (s *ReaderSource) Name() string { return s.name }

// Start reads lines in a goroutine.
func (s *ReaderSource) Start(ctx context.Context) (<-chan Line, error) {
	ch := make(chan Line, chanSize)
	go func() {
		defer close(ch)
		scanLines(ctx, newScanner(s.r), s.stream, ch)
	}()
	return ch, nil
}
