package core

import (
	"time"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/indirect"
	"github.com/oktetlabs/test-environment-sub029/internal/intern"
	"github.com/oktetlabs/test-environment-sub029/internal/monitor"
	"github.com/oktetlabs/test-environment-sub029/internal/parser"
)

var nullBytes = []byte(entry.NullString)

// Emit records a message stamped with the current time.
func (l *Logger) Emit(level entry.Level, user, format intern.Handle, args ...entry.Arg) {
	l.EmitAt(l.cfg.Clock(), level, user, format, args...)
}

// Log implements Backend. Source location and entity are not stored.
func (l *Logger) Log(_ string, _ int, level entry.Level, _ string, user, format intern.Handle, args ...entry.Arg) {
	l.EmitAt(l.cfg.Clock(), level, user, format, args...)
}

// EmitAt records a message with an explicit timestamp.
func (l *Logger) EmitAt(ts time.Time, level entry.Level, user, format intern.Handle, args ...entry.Arg) {
	st := l.staging.Get()
	defer l.staging.Put(st)

	stamp(st.Header, ts, level)
	st.Header.SetUser(uint32(user))
	st.Header.SetFmt(uint32(format))
	l.emit(st, l.strs.Lookup(format), 0, args)
}

// EmitDynamic records a message whose user name and text are both copied
// into the ring, for callers without process-lifetime strings.
func (l *Logger) EmitDynamic(ts time.Time, level entry.Level, user, msg string) {
	st := l.staging.Get()
	defer l.staging.Put(st)

	stamp(st.Header, ts, level)
	st.Header.SetFlags(buffer.FlagUserInArg)
	st.Header.SetFmt(uint32(l.dynFmt))
	u, _ := entry.Str(user).Payload()
	st.Deferred = append(st.Deferred, buffer.Deferred{Slot: 0, Data: u, NUL: true})
	st.Cells += l.ring.CellsFor(len(u) + 1)

	args := [1]entry.Arg{entry.Str(msg)}
	l.emit(st, "%s", 1, args[:])
}

func stamp(h buffer.Header, ts time.Time, level entry.Level) {
	h.SetTimestamp(uint32(ts.Unix()), uint32(ts.Nanosecond()/1000))
	h.SetLevel(uint32(level))
}

// emit captures args against format into st, starting at slot first, and
// publishes the record.
func (l *Logger) emit(st *buffer.Staging, format string, first int, args []entry.Arg) {
	h := st.Header
	maxField := l.cfg.Protocol.MaxField()
	bound := true
	next := 0

	parser.Walk(format, first, l.cfg.ArgsMax, func(c parser.Conversion, slot int) bool {
		var a entry.Arg
		if next < len(args) {
			a = args[next]
		}
		next++

		switch c.Kind {
		case parser.KindInt, parser.KindChar:
			h.SetArg(slot, a.Word())
		case parser.KindPointer:
			id, ok := l.ptrs.Bind(uintptr(a.Word()))
			if !ok {
				bound = false
				return false
			}
			st.Pointers = append(st.Pointers, uint64(id))
			h.SetArg(slot, uint64(id))
		case parser.KindString:
			data := nullBytes
			if a.IsString() {
				data, _ = a.Payload()
			}
			st.Deferred = append(st.Deferred, buffer.Deferred{Slot: slot, Data: data, NUL: true})
			st.Cells += l.ring.CellsFor(len(data) + 1)
		case parser.KindMem:
			var data []byte
			if a.IsMem() {
				data, _ = a.Payload()
			}
			if len(data) > maxField {
				data = data[:maxField]
			}
			st.Deferred = append(st.Deferred, buffer.Deferred{Slot: slot, Data: data})
			h.SetArg(slot+1, uint64(len(data)))
			st.Cells += l.ring.CellsFor(len(data))
		}
		return true
	})

	if !bound {
		l.drop(st, monitor.DropIDs)
		return
	}
	if st.Cells > l.ring.Total() {
		l.drop(st, monitor.DropOversize)
		return
	}
	l.publish(st)
}

// publish copies a staged record into the ring. On failure after the
// header was reserved, every cell taken by this call is returned.
func (l *Logger) publish(st *buffer.Staging) {
	r := l.ring
	r.Lock()

	idx, ok := r.ReserveHeader(l.force)
	if !ok {
		reason := monitor.DropFull
		if r.Closed() {
			reason = monitor.DropClosed
		} else if l.force {
			reason = monitor.DropPinned
		}
		r.Unlock()
		l.drop(st, reason)
		return
	}

	h := r.Header(idx)
	h.CopyBody(st.Header)
	span := uint32(1)
	for i, d := range st.Deferred {
		if len(d.Data) == 0 && !d.NUL {
			// An empty dump takes no cells and needs no ID.
			h.SetArg(d.Slot, uint64(indirect.Nil))
			continue
		}
		reason := monitor.DropPayload
		p, ok := r.ReservePayload(d.Data, d.NUL)
		if ok {
			span += p.Cells
			h.SetSpan(span)
			var id indirect.ID
			if id, ok = l.payloads.Bind(p); ok {
				h.SetArg(d.Slot, uint64(id))
				continue
			}
			reason = monitor.DropIDs
		}

		for _, prev := range st.Deferred[:i] {
			l.payloads.Release(indirect.ID(h.Arg(prev.Slot)))
		}
		r.Rewind(idx, span)
		r.Unlock()
		l.drop(st, reason)
		return
	}
	r.Unlock()
	l.stats.RecordEmit()
}

func (l *Logger) drop(st *buffer.Staging, reason monitor.DropReason) {
	for _, id := range st.Pointers {
		l.ptrs.Release(indirect.ID(id))
	}
	l.stats.RecordDrop(reason)
}

// evicted runs under the ring lock for each record overwritten by a new one.
func (l *Logger) evicted(h buffer.Header) {
	l.releaseArgs(h)
	l.stats.RecordEvict()
}

func (l *Logger) releaseArgs(h buffer.Header) {
	first := 0
	if h.Flags()&buffer.FlagUserInArg != 0 {
		l.payloads.Release(indirect.ID(h.Arg(0)))
		first = 1
	}
	parser.Walk(l.strs.Lookup(intern.Handle(h.Fmt())), first, l.cfg.ArgsMax, func(c parser.Conversion, slot int) bool {
		switch c.Kind {
		case parser.KindPointer:
			l.ptrs.Release(indirect.ID(h.Arg(slot)))
		case parser.KindString, parser.KindMem:
			l.payloads.Release(indirect.ID(h.Arg(slot)))
		}
		return true
	})
}
