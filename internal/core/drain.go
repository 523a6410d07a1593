package core

import (
	"bytes"
	"unsafe"

	"github.com/oktetlabs/test-environment-sub029/internal/buffer"
	"github.com/oktetlabs/test-environment-sub029/internal/indirect"
	"github.com/oktetlabs/test-environment-sub029/internal/intern"
	"github.com/oktetlabs/test-environment-sub029/internal/parser"
	"github.com/oktetlabs/test-environment-sub029/internal/wire"
)

const pointerSize = unsafe.Sizeof(uintptr(0))

// Drain writes the oldest record into buf in wire form, frees it and
// returns the bytes written. It returns 0 when the ring is empty or when the
// record does not fit in buf; in the latter case the record stays queued.
func (l *Logger) Drain(buf []byte) int {
	l.drainMu.Lock()
	defer l.drainMu.Unlock()
	return l.drainOne(buf)
}

// DrainBatch writes as many whole records as fit in buf and returns the
// total bytes written.
func (l *Logger) DrainBatch(buf []byte) int {
	l.drainMu.Lock()
	defer l.drainMu.Unlock()

	n := 0
	for n < len(buf) {
		k := l.drainOne(buf[n:])
		if k == 0 {
			break
		}
		n += k
	}
	return n
}

func (l *Logger) drainOne(buf []byte) int {
	r := l.ring
	r.Lock()
	if r.Empty() {
		r.Unlock()
		return 0
	}
	head := r.Head()
	r.SetMark(head, true)
	r.Unlock()

	// The marked head cannot be evicted, so its cells are read unlocked.
	r.ReadInto(head, 1, l.hdr)
	l.ptrIDs = l.ptrIDs[:0]
	l.payIDs = l.payIDs[:0]
	l.enc.Reset(buf)
	l.encode(l.hdr)
	n, err := l.enc.Len(), l.enc.Err()

	r.Lock()
	r.SetMark(head, false)
	if err != nil {
		r.Unlock()
		l.stats.RecordShortBuffer()
		return 0
	}
	r.ReleaseHead()
	r.Unlock()

	for _, id := range l.ptrIDs {
		l.ptrs.Release(id)
	}
	for _, id := range l.payIDs {
		l.payloads.Release(id)
	}
	l.stats.RecordDrain(n)
	return n
}

func (l *Logger) encode(h buffer.Header) {
	e := l.enc
	maxField := l.cfg.Protocol.MaxField()

	e.PutUint32(h.Seq())
	e.PutUint8(wire.Version)
	e.PutUint32(h.Sec())
	e.PutUint32(h.Usec())
	e.PutLevel(h.Level())

	first := 0
	if h.Flags()&buffer.FlagUserInArg != 0 {
		l.putString(indirect.ID(h.Arg(0)))
		first = 1
	} else {
		e.PutString(clip(l.strs.Lookup(intern.Handle(h.User())), maxField))
	}
	format := l.strs.Lookup(intern.Handle(h.Fmt()))
	e.PutString(clip(format, maxField))

	parser.Walk(format, first, l.cfg.ArgsMax, func(c parser.Conversion, slot int) bool {
		v := h.Arg(slot)
		switch c.Kind {
		case parser.KindInt:
			e.PutNFL(4)
			e.PutUint32(uint32(v))
		case parser.KindChar:
			e.PutNFL(1)
			e.PutUint8(uint8(v))
		case parser.KindPointer:
			id := indirect.ID(v)
			p, _ := l.ptrs.Resolve(id)
			l.ptrIDs = append(l.ptrIDs, id)
			l.putPointer(uint64(p))
		case parser.KindString:
			l.putString(indirect.ID(v))
		case parser.KindMem:
			l.putMem(indirect.ID(v), int(h.Arg(slot+1)))
		}
		return e.Err() == nil
	})
	e.PutEOR()
}

func (l *Logger) putPointer(v uint64) {
	e := l.enc
	if pointerSize == 8 {
		e.PutNFL(8)
		e.PutUint32(uint32(v >> 32))
		e.PutUint32(uint32(v))
		return
	}
	e.PutNFL(4)
	e.PutUint32(uint32(v))
}

// putString streams a NUL-terminated payload as one field. An unresolvable
// ID yields an empty field.
func (l *Logger) putString(id indirect.ID) {
	e := l.enc
	mark := e.BeginField()
	if p, ok := l.payloads.Resolve(id); ok {
		a, b := l.ring.Segments(p)
		if i := bytes.IndexByte(a, 0); i >= 0 {
			a, b = a[:i], nil
		} else if i := bytes.IndexByte(b, 0); i >= 0 {
			b = b[:i]
		}
		e.Append(a)
		e.Append(b)
		l.payIDs = append(l.payIDs, id)
	}
	e.EndField(mark)
}

func (l *Logger) putMem(id indirect.ID, length int) {
	var a, b []byte
	if p, ok := l.payloads.Resolve(id); ok {
		a, b = l.ring.Segments(p)
		l.payIDs = append(l.payIDs, id)
	}
	if len(a) >= length {
		a, b = a[:length], nil
	} else if len(a)+len(b) > length {
		b = b[:length-len(a)]
	}
	l.enc.PutFieldParts(a, b)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
