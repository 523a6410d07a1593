package logfork

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// Emitter stores a message whose strings are copied. *core.Logger
// satisfies it.
type Emitter interface {
	EmitDynamic(ts time.Time, level entry.Level, user, msg string)
}

// Server receives frames from children and re-emits them.
type Server struct {
	em  Emitter
	log *logrus.Logger
}

// NewServer creates a server emitting into em.
func NewServer(em Emitter, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{em: em, log: log}
}

// ServeConn reads frames from r until EOF, a malformed frame or ctx ends.
func (s *Server) ServeConn(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	frames := 0
	var pid uint32
	for ctx.Err() == nil {
		f, err := ReadFrame(br)
		if errors.Is(err, io.EOF) {
			s.log.WithFields(logrus.Fields{"pid": pid, "frames": frames}).Debug("logfork: child disconnected")
			return nil
		}
		if err != nil {
			return err
		}
		if frames == 0 {
			pid = f.PID
			s.log.WithField("pid", pid).Debug("logfork: child connected")
		}
		frames++
		s.em.EmitDynamic(f.Time, f.Level, f.User, f.Msg)
	}
	return ctx.Err()
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails,
// and waits for the connection handlers to finish.
func (s *Server) Serve(parent context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	conns := make(map[net.Conn]struct{})

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		mu.Lock()
		for c := range conns {
			_ = c.Close()
		}
		mu.Unlock()
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("logfork: listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			cancel()
			wg.Wait()
			if parent.Err() != nil {
				return nil
			}
			return fmt.Errorf("logfork: accept: %w", err)
		}

		mu.Lock()
		conns[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ServeConn(ctx, conn); err != nil && ctx.Err() == nil {
				s.log.WithError(err).Warn("logfork: connection dropped")
			}
			mu.Lock()
			delete(conns, conn)
			mu.Unlock()
			_ = conn.Close()
		}()
	}
}
