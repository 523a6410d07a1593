package wire

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrShortBuffer means the record did not fit in the destination.
	ErrShortBuffer = errors.New("wire: record does not fit in buffer")
	// ErrFieldTooLong means a field length reached the EOR value.
	ErrFieldTooLong = errors.New("wire: field too long")
)

// Encoder writes one or more records into a fixed buffer. The first failure
// sticks: later writes are ignored and Err reports it.
type Encoder struct {
	proto Protocol
	buf   []byte
	n     int
	err   error
}

// NewEncoder returns an encoder writing into buf.
func NewEncoder(p Protocol, buf []byte) *Encoder {
	return &Encoder{proto: p, buf: buf}
}

// Reset retargets the encoder to buf and clears its error.
func (e *Encoder) Reset(buf []byte) {
	e.buf = buf
	e.n = 0
	e.err = nil
}

// Len returns the bytes written so far.
func (e *Encoder) Len() int { return e.n }

// Err returns the first error encountered.
func (e *Encoder) Err() error { return e.err }

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte { return e.buf[:e.n] }

func (e *Encoder) reserve(k int) []byte {
	if e.err != nil {
		return nil
	}
	if e.n+k > len(e.buf) {
		e.err = ErrShortBuffer
		return nil
	}
	b := e.buf[e.n : e.n+k]
	e.n += k
	return b
}

// PutUint8 writes one byte.
func (e *Encoder) PutUint8(v uint8) {
	if b := e.reserve(1); b != nil {
		b[0] = v
	}
}

// PutUint32 writes a big-endian u32.
func (e *Encoder) PutUint32(v uint32) {
	if b := e.reserve(4); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

func putWidth(b []byte, v uint32) {
	switch len(b) {
	case 1:
		b[0] = uint8(v)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(v))
	default:
		binary.BigEndian.PutUint32(b, v)
	}
}

// PutLevel writes the level with the protocol level width.
func (e *Encoder) PutLevel(v uint32) {
	if b := e.reserve(e.proto.LevelWidth); b != nil {
		putWidth(b, v)
	}
}

// PutNFL writes a field length.
func (e *Encoder) PutNFL(n int) {
	if e.err == nil && n > e.proto.MaxField() {
		e.err = ErrFieldTooLong
		return
	}
	if b := e.reserve(e.proto.NFLWidth); b != nil {
		putWidth(b, uint32(n))
	}
}

// PutEOR terminates a record.
func (e *Encoder) PutEOR() {
	if b := e.reserve(e.proto.NFLWidth); b != nil {
		putWidth(b, e.proto.EOR())
	}
}

// Append writes raw bytes.
func (e *Encoder) Append(p []byte) {
	if b := e.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// PutField writes a length-prefixed field.
func (e *Encoder) PutField(p []byte) {
	e.PutNFL(len(p))
	e.Append(p)
}

// PutFieldParts writes a field whose bytes arrive in two pieces.
func (e *Encoder) PutFieldParts(a, b []byte) {
	e.PutNFL(len(a) + len(b))
	e.Append(a)
	e.Append(b)
}

// PutString writes a length-prefixed string field.
func (e *Encoder) PutString(s string) {
	e.PutNFL(len(s))
	if b := e.reserve(len(s)); b != nil {
		copy(b, s)
	}
}

// BeginField reserves a field length placeholder for bytes streamed with
// Append and returns a mark for EndField.
func (e *Encoder) BeginField() int {
	mark := e.n
	e.reserve(e.proto.NFLWidth)
	return mark
}

// EndField back-patches the length of the field started at mark.
func (e *Encoder) EndField(mark int) {
	if e.err != nil {
		return
	}
	n := e.n - mark - e.proto.NFLWidth
	if n > e.proto.MaxField() {
		e.err = ErrFieldTooLong
		return
	}
	putWidth(e.buf[mark:mark+e.proto.NFLWidth], uint32(n))
}
