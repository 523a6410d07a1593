package core

import (
	"errors"
	"sync/atomic"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/intern"
)

// ErrNotInitialized is returned by Shutdown when no logger is installed.
var ErrNotInitialized = errors.New("core: logger not initialized")

// Backend receives the calls made through the process-wide Log function.
type Backend interface {
	Log(file string, line int, level entry.Level, entity string, user, format intern.Handle, args ...entry.Arg)
}

type backendBox struct{ b Backend }

var (
	current   atomic.Pointer[backendBox]
	installed atomic.Pointer[Logger]
	entity    atomic.Value // string
)

// Init creates a logger from cfg and installs it as the process backend,
// closing any logger installed before.
func Init(cfg Config) (*Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if prev := installed.Swap(l); prev != nil {
		_ = prev.Close()
	}
	entity.Store(cfg.Entity)
	current.Store(&backendBox{b: l})
	return l, nil
}

// Installed returns the logger installed by Init, if any.
func Installed() *Logger { return installed.Load() }

// SetBackend replaces the process backend. A nil backend discards messages.
func SetBackend(b Backend) {
	if b == nil {
		current.Store(nil)
		return
	}
	current.Store(&backendBox{b: b})
}

// Log dispatches a message to the current backend.
func Log(file string, line int, level entry.Level, user, format intern.Handle, args ...entry.Arg) {
	box := current.Load()
	if box == nil {
		return
	}
	name, _ := entity.Load().(string)
	box.b.Log(file, line, level, name, user, format, args...)
}

// Shutdown closes the installed logger and detaches it from Log.
func Shutdown() error {
	l := installed.Swap(nil)
	if l == nil {
		return ErrNotInitialized
	}
	if box := current.Load(); box != nil && box.b == Backend(l) {
		current.CompareAndSwap(box, nil)
	}
	return l.Close()
}

// ReinitAfterFork is called in a freshly forked child. The parent's ring is
// abandoned without being touched and b takes over as the process backend.
func ReinitAfterFork(b Backend) {
	installed.Store(nil)
	SetBackend(b)
}
