package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

var (
	// ErrTruncated means the input ended inside a record.
	ErrTruncated = errors.New("wire: truncated record")
	// ErrVersion means the record carries an unknown version byte.
	ErrVersion = errors.New("wire: unsupported record version")
)

// Decoder reads records from a byte stream.
type Decoder struct {
	proto   Protocol
	r       io.Reader
	scratch [4]byte
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(p Protocol, r io.Reader) *Decoder {
	return &Decoder{proto: p, r: bufio.NewReader(r)}
}

// Unmarshal decodes the first record in b and returns it with the number of
// bytes it occupied.
func Unmarshal(p Protocol, b []byte) (*entry.Record, int, error) {
	br := bytes.NewReader(b)
	d := &Decoder{proto: p, r: br}
	rec, err := d.Decode()
	return rec, len(b) - br.Len(), err
}

// Decode reads the next record. It returns io.EOF when the stream ends on a
// record boundary.
func (d *Decoder) Decode() (*entry.Record, error) {
	seq, err := d.readUint(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, truncated("seq", err)
	}

	rec := &entry.Record{Seq: seq}
	ver, err := d.readUint(1)
	if err != nil {
		return nil, truncated("version", err)
	}
	if uint8(ver) != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, ver)
	}
	rec.Version = uint8(ver)

	if rec.Sec, err = d.readUint(4); err != nil {
		return nil, truncated("ts_sec", err)
	}
	if rec.Usec, err = d.readUint(4); err != nil {
		return nil, truncated("ts_usec", err)
	}
	level, err := d.readUint(d.proto.LevelWidth)
	if err != nil {
		return nil, truncated("level", err)
	}
	rec.Level = entry.Level(level)

	user, err := d.field()
	if err != nil {
		return nil, truncated("user", err)
	}
	format, err := d.field()
	if err != nil {
		return nil, truncated("fmt", err)
	}
	rec.User, rec.Fmt = string(user), string(format)

	eor := d.proto.EOR()
	for {
		n, err := d.readUint(d.proto.NFLWidth)
		if err != nil {
			return nil, truncated("field length", err)
		}
		if n == eor {
			return rec, nil
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return nil, truncated("field", err)
		}
		rec.Fields = append(rec.Fields, b)
	}
}

// field reads a length-prefixed field that must not be the EOR marker.
func (d *Decoder) field() ([]byte, error) {
	n, err := d.readUint(d.proto.NFLWidth)
	if err != nil {
		return nil, err
	}
	if n == d.proto.EOR() {
		return nil, errors.New("unexpected end of record")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Decoder) readUint(width int) (uint32, error) {
	b := d.scratch[:width]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint32(b[0]), nil
	case 2:
		return uint32(binary.BigEndian.Uint16(b)), nil
	default:
		return binary.BigEndian.Uint32(b), nil
	}
}

func truncated(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s: %v", ErrTruncated, what, err)
}
