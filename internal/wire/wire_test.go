package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

func TestProtocolLimits(t *testing.T) {
	tests := []struct {
		nfl int
		eor uint32
	}{
		{1, 0xff},
		{2, 0xffff},
		{4, 0xffffffff},
	}
	for _, tt := range tests {
		p := Protocol{LevelWidth: 4, NFLWidth: tt.nfl}
		require.NoError(t, p.Validate())
		assert.Equal(t, tt.eor, p.EOR())
		assert.Equal(t, int(tt.eor)-1, p.MaxField())
	}
	assert.ErrorIs(t, Protocol{LevelWidth: 3, NFLWidth: 2}.Validate(), ErrProtocol)
	assert.ErrorIs(t, Protocol{LevelWidth: 2, NFLWidth: 0}.Validate(), ErrProtocol)
	assert.Equal(t, 15, Default.FixedSize())
}

func encodeSample(e *Encoder) {
	e.PutUint32(1)
	e.PutUint8(Version)
	e.PutUint32(1000)
	e.PutUint32(500)
	e.PutLevel(uint32(entry.LevelRing))
	e.PutString("U")
	e.PutString("hello %d %s")
	e.PutNFL(4)
	e.PutUint32(42)
	mark := e.BeginField()
	e.Append([]byte("wor"))
	e.Append([]byte("ld"))
	e.EndField(mark)
	e.PutEOR()
}

func TestEncodeExactBytes(t *testing.T) {
	p := Protocol{LevelWidth: 4, NFLWidth: 1}
	buf := make([]byte, 64)
	e := NewEncoder(p, buf)
	encodeSample(e)
	require.NoError(t, e.Err())

	want := []byte{
		0, 0, 0, 1,
		1,
		0, 0, 0x03, 0xe8,
		0, 0, 0x01, 0xf4,
		0, 0, 0, 4,
		1, 'U',
		11, 'h', 'e', 'l', 'l', 'o', ' ', '%', 'd', ' ', '%', 's',
		4, 0, 0, 0, 42,
		5, 'w', 'o', 'r', 'l', 'd',
		0xff,
	}
	assert.Equal(t, want, e.Bytes())
}

func TestEncoderShortBufferSticks(t *testing.T) {
	var full bytes.Buffer
	{
		e := NewEncoder(Default, make([]byte, 256))
		encodeSample(e)
		require.NoError(t, e.Err())
		full.Write(e.Bytes())
	}

	for size := 0; size < full.Len(); size++ {
		e := NewEncoder(Default, make([]byte, size))
		encodeSample(e)
		assert.ErrorIs(t, e.Err(), ErrShortBuffer, "size %d", size)
		assert.LessOrEqual(t, e.Len(), size)
	}

	e := NewEncoder(Default, make([]byte, full.Len()))
	encodeSample(e)
	assert.NoError(t, e.Err())
	assert.Equal(t, full.Len(), e.Len())
}

func TestEncoderFieldTooLong(t *testing.T) {
	p := Protocol{LevelWidth: 1, NFLWidth: 1}
	e := NewEncoder(p, make([]byte, 1024))
	e.PutField(make([]byte, 254))
	require.NoError(t, e.Err())
	e.PutField(make([]byte, 255))
	assert.ErrorIs(t, e.Err(), ErrFieldTooLong)

	e.Reset(make([]byte, 1024))
	mark := e.BeginField()
	e.Append(make([]byte, 300))
	e.EndField(mark)
	assert.ErrorIs(t, e.Err(), ErrFieldTooLong)
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, p := range []Protocol{Default, {LevelWidth: 4, NFLWidth: 1}, {LevelWidth: 1, NFLWidth: 4}} {
		e := NewEncoder(p, make([]byte, 256))
		encodeSample(e)
		encodeSample(e)
		require.NoError(t, e.Err())

		d := NewDecoder(p, bytes.NewReader(e.Bytes()))
		for i := 0; i < 2; i++ {
			rec, err := d.Decode()
			require.NoError(t, err)
			assert.Equal(t, uint32(1), rec.Seq)
			assert.Equal(t, Version, rec.Version)
			assert.Equal(t, uint32(1000), rec.Sec)
			assert.Equal(t, uint32(500), rec.Usec)
			assert.Equal(t, entry.LevelRing, rec.Level)
			assert.Equal(t, "U", rec.User)
			assert.Equal(t, "hello %d %s", rec.Fmt)
			assert.Equal(t, [][]byte{{0, 0, 0, 42}, []byte("world")}, rec.Fields)
			assert.Equal(t, "hello 42 world", rec.Message())
		}
		_, err := d.Decode()
		assert.Equal(t, io.EOF, err)
	}
}

func TestUnmarshalConsumed(t *testing.T) {
	e := NewEncoder(Default, make([]byte, 256))
	encodeSample(e)
	one := e.Len()
	encodeSample(e)

	rec, n, err := Unmarshal(Default, e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, one, n)
	assert.Equal(t, "U", rec.User)
}

func TestDecodeTruncated(t *testing.T) {
	e := NewEncoder(Default, make([]byte, 256))
	encodeSample(e)
	full := e.Bytes()
	for cut := 1; cut < len(full); cut++ {
		_, _, err := Unmarshal(Default, full[:cut])
		assert.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
	}
}

func TestDecodeBadVersion(t *testing.T) {
	e := NewEncoder(Default, make([]byte, 256))
	encodeSample(e)
	b := append([]byte{}, e.Bytes()...)
	b[4] = 2
	_, _, err := Unmarshal(Default, b)
	assert.ErrorIs(t, err, ErrVersion)
}
