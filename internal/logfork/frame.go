// Package logfork carries log messages from a forked child, which must not
// touch the ring it inherited, to the parent that owns the ring.
//
// The child installs a Client as its backend. The Client formats each
// message locally and writes one frame per message to the parent, where a
// Server re-emits it into the ring as a dynamic record.
package logfork

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// Frame layout, big-endian:
//
//	u32 length of the rest
//	u32 pid, u32 tid, u32 sec, u32 usec, u32 level
//	u16 user length, user bytes
//	u32 message length, message bytes
const (
	frameFixed = 5*4 + 2 + 4

	// MaxFrame bounds the body so a corrupt length cannot force a huge allocation.
	MaxFrame = 1 << 20
	// MaxUser is the longest user name a frame carries.
	MaxUser = 1<<16 - 1
)

// ErrFrame is returned for malformed frames.
var ErrFrame = errors.New("logfork: malformed frame")

// Frame is one forwarded message.
type Frame struct {
	PID   uint32
	TID   uint32
	Time  time.Time
	Level entry.Level
	User  string
	Msg   string
}

// Size returns the encoded length of f including the length prefix.
func (f *Frame) Size() int {
	return 4 + frameFixed + len(f.User) + len(f.Msg)
}

// AppendFrame appends the encoding of f to b. Oversized user names and
// messages are truncated.
func AppendFrame(b []byte, f *Frame) []byte {
	user, msg := f.User, f.Msg
	if len(user) > MaxUser {
		user = user[:MaxUser]
	}
	if room := MaxFrame - frameFixed - len(user); len(msg) > room {
		msg = msg[:room]
	}

	b = binary.BigEndian.AppendUint32(b, uint32(frameFixed+len(user)+len(msg)))
	b = binary.BigEndian.AppendUint32(b, f.PID)
	b = binary.BigEndian.AppendUint32(b, f.TID)
	b = binary.BigEndian.AppendUint32(b, uint32(f.Time.Unix()))
	b = binary.BigEndian.AppendUint32(b, uint32(f.Time.Nanosecond()/1000))
	b = binary.BigEndian.AppendUint32(b, uint32(f.Level))
	b = binary.BigEndian.AppendUint16(b, uint16(len(user)))
	b = append(b, user...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(msg)))
	return append(b, msg...)
}

// ReadFrame reads one frame. It returns io.EOF only at a frame boundary.
func ReadFrame(r io.Reader) (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated length", ErrFrame)
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n < frameFixed || n > MaxFrame {
		return nil, fmt.Errorf("%w: length %d", ErrFrame, n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: truncated body: %w", ErrFrame, err)
	}

	f := &Frame{
		PID:   binary.BigEndian.Uint32(body[0:]),
		TID:   binary.BigEndian.Uint32(body[4:]),
		Level: entry.Level(binary.BigEndian.Uint32(body[16:])),
	}
	sec := binary.BigEndian.Uint32(body[8:])
	usec := binary.BigEndian.Uint32(body[12:])
	f.Time = time.Unix(int64(sec), int64(usec)*int64(time.Microsecond))

	rest := body[20:]
	ulen := int(binary.BigEndian.Uint16(rest))
	rest = rest[2:]
	if len(rest) < ulen+4 {
		return nil, fmt.Errorf("%w: user length %d", ErrFrame, ulen)
	}
	f.User = string(rest[:ulen])
	rest = rest[ulen:]
	mlen := int(binary.BigEndian.Uint32(rest))
	rest = rest[4:]
	if len(rest) != mlen {
		return nil, fmt.Errorf("%w: message length %d, have %d", ErrFrame, mlen, len(rest))
	}
	f.Msg = string(rest)
	return f, nil
}
