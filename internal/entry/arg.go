package entry

import "unsafe"

// ArgKind tags the value carried by an Arg.
type ArgKind uint8

const (
	ArgNone ArgKind = iota
	ArgInt
	ArgPointer
	ArgString
	ArgMem
)

// Arg is one producer argument. Strings and memory are referenced, not
// copied, until the producer stores them in the ring.
type Arg struct {
	kind ArgKind
	word uint64
	data []byte
}

// Int returns an integer argument.
func Int(v int64) Arg { return Arg{kind: ArgInt, word: uint64(v)} }

// Uint returns an unsigned integer argument.
func Uint(v uint64) Arg { return Arg{kind: ArgInt, word: v} }

// Char returns a character argument.
func Char(c byte) Arg { return Arg{kind: ArgInt, word: uint64(c)} }

// Ptr returns an opaque pointer-sized argument.
func Ptr(p uintptr) Arg { return Arg{kind: ArgPointer, word: uint64(p)} }

// Str returns a string argument without copying s.
func Str(s string) Arg {
	return Arg{kind: ArgString, data: unsafe.Slice(unsafe.StringData(s), len(s))}
}

// Bytes returns a string argument backed by b.
func Bytes(b []byte) Arg { return Arg{kind: ArgString, data: b} }

// Mem returns a memory dump argument backed by b.
func Mem(b []byte) Arg { return Arg{kind: ArgMem, data: b} }

// Kind reports what the argument carries.
func (a Arg) Kind() ArgKind { return a.kind }

// Word returns the value used by inline conversions. Out-of-line arguments
// yield 0.
func (a Arg) Word() uint64 {
	if a.kind == ArgInt || a.kind == ArgPointer {
		return a.word
	}
	return 0
}

// Payload returns the referenced bytes of a string or memory argument.
func (a Arg) Payload() ([]byte, bool) {
	if a.kind == ArgString || a.kind == ArgMem {
		return a.data, true
	}
	return nil, false
}

// IsString reports whether the argument can satisfy %s.
func (a Arg) IsString() bool { return a.kind == ArgString }

// IsMem reports whether the argument can satisfy %Tm.
func (a Arg) IsMem() bool { return a.kind == ArgMem }
