// Package entry defines the levels, producer arguments and decoded records
// shared across the agent log pipeline.
package entry

import (
	"fmt"
	"strings"
	"time"
)

// Level is a log level bit. Values outside the known set are carried as-is.
type Level uint32

const (
	LevelUnknown   Level = 0
	LevelError     Level = 0x01
	LevelWarn      Level = 0x02
	LevelRing      Level = 0x04
	LevelInfo      Level = 0x08
	LevelVerb      Level = 0x10
	LevelEntryExit Level = 0x20
	LevelPacket    Level = 0x40
)

// Levels lists the known levels in ascending bit order.
func Levels() []Level {
	return []Level{LevelError, LevelWarn, LevelRing, LevelInfo, LevelVerb, LevelEntryExit, LevelPacket}
}

// String returns the string representation of a Level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelRing:
		return "RING"
	case LevelInfo:
		return "INFO"
	case LevelVerb:
		return "VERB"
	case LevelEntryExit:
		return "ENTRY/EXIT"
	case LevelPacket:
		return "PACKET"
	case LevelUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("LEVEL(0x%x)", uint32(l))
	}
}

// ParseLevel converts a string to a Level. Case-insensitive.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR", "ERR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "RING":
		return LevelRing
	case "INFO":
		return LevelInfo
	case "VERB", "VERBOSE":
		return LevelVerb
	case "ENTRY/EXIT", "ENTRY_EXIT":
		return LevelEntryExit
	case "PACKET":
		return LevelPacket
	default:
		return LevelUnknown
	}
}

// Record is one log message as decoded from the wire.
type Record struct {
	Seq     uint32
	Version uint8
	Sec     uint32
	Usec    uint32
	Level   Level
	User    string
	Fmt     string
	Fields  [][]byte // one per argument-consuming conversion, in order
}

// Timestamp returns the record time.
func (r *Record) Timestamp() time.Time {
	return time.Unix(int64(r.Sec), int64(r.Usec)*int64(time.Microsecond))
}

// Message expands the format string with the record fields.
func (r *Record) Message() string {
	i := 0
	return expand(r.Fmt, func() (uint64, []byte, bool) {
		if i >= len(r.Fields) {
			return 0, nil, false
		}
		f := r.Fields[i]
		i++
		return fieldWord(f), f, true
	})
}

// Format returns a formatted string representation of the record.
func (r *Record) Format() string {
	ts := r.Timestamp().Format(time.RFC3339Nano)
	return fmt.Sprintf("[%s][%d][%s][%s]: %s", ts, r.Seq, r.User, r.Level, r.Message())
}

// fieldWord decodes a big-endian inline field of up to eight bytes.
func fieldWord(f []byte) uint64 {
	if len(f) > 8 {
		return 0
	}
	var v uint64
	for _, b := range f {
		v = v<<8 | uint64(b)
	}
	return v
}
