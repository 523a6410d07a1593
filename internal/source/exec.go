package source

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// ExecSource runs a command and streams its stdout and stderr.
type ExecSource struct {
	command string
	args    []string
}

// NewExecSource creates a source that runs command with args.
func NewExecSource(command string, args []string) *ExecSource {
	return &ExecSource{command: command, args: args}
}

// Name returns the source identifier.
func (s *ExecSource) Name() string { return "exec:" + s.command }

// Start runs the command. The channel closes once both streams end and
// the process has been reaped.
func (s *ExecSource) Start(ctx context.Context) (<-chan Line, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("source: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("source: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("source: start %s: %w", s.command, err)
	}

	ch := make(chan Line, chanSize)
	var wg sync.WaitGroup
	wg.Add(2)
	go s.readStream(ctx, "stdout", stdout, ch, &wg)
	go s.readStream(ctx, "stderr", stderr, ch, &wg)

	go func() {
		wg.Wait()
		_ = cmd.Wait()
		close(ch)
	}()
	return ch, nil
}

func (s *ExecSource) readStream(ctx context.Context, stream string, r io.Reader, ch chan<- Line, wg *sync.WaitGroup) {
	defer wg.Done()
	if !scanLines(ctx, newScanner(r), stream, ch) {
		// Keep the pipe drained so the child does not block on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}
