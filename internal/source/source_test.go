package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan Line) []Line {
	t.Helper()
	var out []Line
	timeout := time.After(5 * time.Second)
	for {
		select {
		case l, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, l)
		case <-timeout:
			t.Fatal("source did not close its channel")
		}
	}
}

func TestReaderSource(t *testing.T) {
	s := NewReaderSource("in", strings.NewReader("one\ntwo\n\nthree"))
	ch, err := s.Start(context.Background())
	require.NoError(t, err)

	lines := collect(t, ch)
	require.Len(t, lines, 4)
	assert.Equal(t, "one", lines[0].Text)
	assert.Equal(t, "", lines[2].Text)
	assert.Equal(t, "three", lines[3].Text)
	assert.Equal(t, "in", lines[0].Stream)
	assert.False(t, lines[0].Time.IsZero())
	assert.Equal(t, "stdin", NewStdinSource().Name())
}

func TestReaderSourceCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewReaderSource("in", strings.NewReader(strings.Repeat("x\n", 10*chanSize)))
	ch, err := s.Start(ctx)
	require.NoError(t, err)
	cancel()
	lines := collect(t, ch)
	assert.Less(t, len(lines), 10*chanSize)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("ERROR a\nINFO b\n"), 0o644))

	s := NewFileSource(path, false)
	assert.Equal(t, "file:"+path, s.Name())
	ch, err := s.Start(context.Background())
	require.NoError(t, err)
	lines := collect(t, ch)
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO b", lines[1].Text)
	assert.Equal(t, "file", lines[1].Stream)
}

func TestFileSourceFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewFileSource(path, true)
	s.poll = 10 * time.Millisecond
	ch, err := s.Start(ctx)
	require.NoError(t, err)

	assert.Equal(t, "first", (<-ch).Text)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case l := <-ch:
		assert.Equal(t, "second", l.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("appended line not seen")
	}
	cancel()
	collect(t, ch)
}

func TestFileSourceFollowSplitsUnterminatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("par"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewFileSource(path, true)
	s.poll = 10 * time.Millisecond
	ch, err := s.Start(ctx)
	require.NoError(t, err)

	assert.Equal(t, "par", (<-ch).Text)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("tial\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case l := <-ch:
		assert.Equal(t, "tial", l.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("rest of the line not seen")
	}
	cancel()
	collect(t, ch)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "none"), false).Start(context.Background())
	assert.Error(t, err)
}

func TestExecSource(t *testing.T) {
	s := NewExecSource("sh", []string{"-c", "echo out; echo err 1>&2"})
	assert.Equal(t, "exec:sh", s.Name())
	ch, err := s.Start(context.Background())
	require.NoError(t, err)

	got := map[string]string{}
	for _, l := range collect(t, ch) {
		got[l.Stream] = l.Text
	}
	assert.Equal(t, map[string]string{"stdout": "out", "stderr": "err"}, got)
}
