package logfork

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/intern"
)

// Client is the backend of a forked child. It formats messages in the
// calling goroutine and writes them to the parent as frames.
type Client struct {
	strs  *intern.Table
	clock func() time.Time

	mu  sync.Mutex
	w   io.Writer
	buf []byte

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewClient creates a client writing frames to w. Handles passed to Log
// are resolved through strs.
func NewClient(w io.Writer, strs *intern.Table) *Client {
	return &Client{strs: strs, clock: time.Now, w: w}
}

// Dial connects to a parent Server listening on network/addr.
func Dial(network, addr string, strs *intern.Table) (*Client, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("logfork: dial %s: %w", addr, err)
	}
	return NewClient(conn, strs), nil
}

// Log implements core.Backend. Like the ring producer it never fails;
// messages that cannot be written are counted as dropped.
func (c *Client) Log(_ string, _ int, level entry.Level, _ string, user, format intern.Handle, args ...entry.Arg) {
	c.Send(level, c.strs.Lookup(user), entry.FormatArgs(c.strs.Lookup(format), args))
}

// Send forwards an already formatted message.
func (c *Client) Send(level entry.Level, user, msg string) {
	pid, tid := currentIDs()
	f := Frame{PID: pid, TID: tid, Time: c.clock(), Level: level, User: user, Msg: msg}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		c.dropped.Add(1)
		return
	}
	c.buf = AppendFrame(c.buf[:0], &f)
	if _, err := c.w.Write(c.buf); err != nil {
		c.dropped.Add(1)
		return
	}
	c.sent.Add(1)
}

// Sent returns the number of frames written.
func (c *Client) Sent() uint64 { return c.sent.Load() }

// Dropped returns the number of messages that could not be written.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Close closes the underlying writer if it is an io.Closer. Later
// messages are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.w
	c.w = nil
	if cl, ok := w.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
