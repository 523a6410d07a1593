package source

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileSource reads lines from a file and optionally follows appended data.
type FileSource struct {
	path   string
	follow bool
	poll   time.Duration
}

// NewFileSource creates a source over path. With follow set it keeps
// polling for new lines until ctx is cancelled. A last line still missing
// its newline at EOF is sent as it is, and the rest arrives as a new line.
func NewFileSource(path string, follow bool) *FileSource {
	return &FileSource{path: path, follow: follow, poll: 100 * time.Millisecond}
}

// Name returns the source identifier.
func (s *FileSource) Name() string { return "file:" + s.path }

// Start opens the file and reads it in a goroutine.
func (s *FileSource) Start(ctx context.Context) (<-chan Line, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", s.path, err)
	}

	ch := make(chan Line, chanSize)
	go func() {
		defer close(ch)
		defer f.Close()

		for {
			// A fresh scanner resumes at the current offset after EOF.
			if !scanLines(ctx, newScanner(f), "file", ch) || !s.follow {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.poll):
			}
		}
	}()
	return ch, nil
}
