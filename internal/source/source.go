// Package source reads text lines from external inputs for the producer
// side of the pipeline.
package source

import (
	"bufio"
	"context"
	"io"
	"time"
)

// Line is one line of input text.
type Line struct {
	Time   time.Time
	Stream string // stdout, stderr, file, stdin
	Text   string
}

// Source reads lines from an input.
// Implementations close the returned channel when the input is exhausted
// or ctx is cancelled.
type Source interface {
	Start(ctx context.Context) (<-chan Line, error)

	// Name identifies the source; the producer uses it as the log user.
	Name() string
}

const (
	chanSize    = 256
	maxLineSize = 1024 * 1024
)

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

// scanLines sends every line of sc on ch. It returns false if ctx was
// cancelled before the input ended.
func scanLines(ctx context.Context, sc *bufio.Scanner, stream string, ch chan<- Line) bool {
	for sc.Scan() {
		l := Line{Time: time.Now(), Stream: stream, Text: sc.Text()}
		select {
		case ch <- l:
		case <-ctx.Done():
			return false
		}
	}
	return ctx.Err() == nil
}
