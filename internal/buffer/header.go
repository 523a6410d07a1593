package buffer

import "encoding/binary"

// Header cell layout. Little-endian, never leaves the process.
const (
	offSpan  = 0
	offSeq   = 4
	offMark  = 8
	offFlags = 9
	offSec   = 12
	offUsec  = 16
	offLevel = 20
	offUser  = 24
	offFmt   = 28
	offArgs  = 32

	argWidth = 8
)

// MinArgs is the smallest supported number of argument slots per header.
const MinArgs = 12

// FlagUserInArg marks a record whose user string is stored as a payload
// referenced from argument slot 0.
const FlagUserInArg uint8 = 1 << 0

// CellSizeFor returns the cell size for headers with argsMax slots.
func CellSizeFor(argsMax int) int {
	return offArgs + argWidth*argsMax
}

// Header is a view of one header cell.
type Header []byte

func (h Header) Span() uint32 { return binary.LittleEndian.Uint32(h[offSpan:]) }
func (h Header) SetSpan(v uint32) { binary.LittleEndian.PutUint32(h[offSpan:], v) }
func (h Header) Seq() uint32 { return binary.LittleEndian.Uint32(h[offSeq:]) }
func (h Header) SetSeq(v uint32) { binary.LittleEndian.PutUint32(h[offSeq:], v) }
func (h Header) Marked() bool { return h[offMark] != 0 }
func (h Header) Flags() uint8 { return h[offFlags] }
func (h Header) SetFlags(v uint8) { h[offFlags] = v }
func (h Header) Sec() uint32 { return binary.LittleEndian.Uint32(h[offSec:]) }
func (h Header) Usec() uint32 { return binary.LittleEndian.Uint32(h[offUsec:]) }
func (h Header) Level() uint32 { return binary.LittleEndian.Uint32(h[offLevel:]) }
func (h Header) SetLevel(v uint32) { binary.LittleEndian.PutUint32(h[offLevel:], v) }
func (h Header) User() uint32 { return binary.LittleEndian.Uint32(h[offUser:]) }
func (h Header) SetUser(v uint32) { binary.LittleEndian.PutUint32(h[offUser:], v) }
func (h Header) Fmt() uint32 { return binary.LittleEndian.Uint32(h[offFmt:]) }
func (h Header) SetFmt(v uint32) { binary.LittleEndian.PutUint32(h[offFmt:], v) }
func (h Header) NumArgs() int { return (len(h) - offArgs) / argWidth }
func (h Header) Arg(i int) uint64 { return binary.LittleEndian.Uint64(h[offArgs+i*argWidth:]) }
func (h Header) SetArg(i int, v uint64) {
	binary.LittleEndian.PutUint64(h[offArgs+i*argWidth:], v)
}

// SetMark pins or unpins the record against eviction.
func (h Header) SetMark(v bool) {
	if v {
		h[offMark] = 1
	} else {
		h[offMark] = 0
	}
}

// SetTimestamp stores seconds and microseconds.
func (h Header) SetTimestamp(sec, usec uint32) {
	binary.LittleEndian.PutUint32(h[offSec:], sec)
	binary.LittleEndian.PutUint32(h[offUsec:], usec)
}

// Reset zeroes the whole cell.
func (h Header) Reset() {
	clear(h)
}

// CopyBody copies everything except span, seq and mark from src.
func (h Header) CopyBody(src Header) {
	h[offFlags] = src[offFlags]
	copy(h[offSec:], src[offSec:])
}
