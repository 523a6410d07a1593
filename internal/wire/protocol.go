// Package wire implements the network encoding of drained log records.
//
// A record is, in network byte order:
//
//	seq u32 | version u8 | ts_sec u32 | ts_usec u32 | level uL |
//	nfl user | nfl fmt | { nfl bytes }* | EOR
//
// where L is the configured level width and nfl a field length of the
// configured NFL width. EOR is the largest NFL value, so the longest field
// is EOR-1 bytes.
package wire

import (
	"errors"
	"fmt"
)

// Version is the record format version byte.
const Version uint8 = 1

// ErrProtocol is returned for unsupported field widths.
var ErrProtocol = errors.New("wire: invalid protocol widths")

// Protocol holds the field widths shared with the receiving side.
type Protocol struct {
	LevelWidth int // bytes of the level field: 1, 2 or 4
	NFLWidth   int // bytes of each field length: 1, 2 or 4
}

// Default is the protocol used when none is configured.
var Default = Protocol{LevelWidth: 2, NFLWidth: 2}

// Validate checks the widths.
func (p Protocol) Validate() error {
	if !validWidth(p.LevelWidth) || !validWidth(p.NFLWidth) {
		return fmt.Errorf("%w: level %d, nfl %d", ErrProtocol, p.LevelWidth, p.NFLWidth)
	}
	return nil
}

func validWidth(w int) bool { return w == 1 || w == 2 || w == 4 }

// EOR returns the end-of-record marker.
func (p Protocol) EOR() uint32 {
	return uint32(uint64(1)<<(8*p.NFLWidth) - 1)
}

// MaxField returns the longest encodable field.
func (p Protocol) MaxField() int {
	return int(p.EOR()) - 1
}

// FixedSize returns the bytes preceding the user field.
func (p Protocol) FixedSize() int {
	return 4 + 1 + 4 + 4 + p.LevelWidth
}
