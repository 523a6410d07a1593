package entry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelStringRoundTrip(t *testing.T) {
	for _, l := range Levels() {
		assert.Equal(t, l, ParseLevel(l.String()), l.String())
	}
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelUnknown, ParseLevel("debug"))
	assert.Equal(t, "LEVEL(0x80)", Level(0x80).String())
}

func TestArgCoercion(t *testing.T) {
	assert.Equal(t, uint64(0), Str("x").Word())
	assert.Equal(t, uint64(0), Mem([]byte{1}).Word())
	assert.Equal(t, uint64(42), Int(42).Word())
	assert.Equal(t, uint64(0xdead), Ptr(0xdead).Word())

	b, ok := Str("abc").Payload()
	assert.True(t, ok)
	assert.Equal(t, []byte("abc"), b)

	_, ok = Int(1).Payload()
	assert.False(t, ok)
	assert.True(t, Bytes(nil).IsString())
	assert.False(t, Mem(nil).IsString())
}

func TestFormatArgs(t *testing.T) {
	tests := []struct {
		name   string
		format string
		args   []Arg
		want   string
	}{
		{"int", "hello %d", []Arg{Int(42)}, "hello 42"},
		{"negative", "%d", []Arg{Int(-7)}, "-7"},
		{"unsigned", "%u", []Arg{Int(-1)}, "4294967295"},
		{"hex", "%#x/%X", []Arg{Int(255), Int(255)}, "0xff/FF"},
		{"width", "[%5d]", []Arg{Int(3)}, "[    3]"},
		{"char", "%c%c", []Arg{Char('o'), Char('k')}, "ok"},
		{"pointer", "%p", []Arg{Ptr(0x1000)}, "0x1000"},
		{"string", "<%s>", []Arg{Str("abc")}, "<abc>"},
		{"string mismatch", "%s", []Arg{Int(1)}, "(NULL)"},
		{"int from string", "%d", []Arg{Str("abc")}, "0"},
		{"mem", "%Tm", []Arg{Mem([]byte{0xde, 0xad})}, "[de ad]"},
		{"mem mismatch", "%Tm", []Arg{Str("x")}, "[]"},
		{"missing", "%d %s", nil, "0 (NULL)"},
		{"extra", "%d", []Arg{Int(1), Int(2)}, "1"},
		{"percent", "100%%", nil, "100%"},
		{"stray", "50%", nil, "50%"},
		{"long modifier", "%ld", []Arg{Int(9)}, "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatArgs(tt.format, tt.args))
		})
	}
}

func TestRecordMessage(t *testing.T) {
	r := &Record{
		Seq:    7,
		Sec:    1700000000,
		Usec:   250,
		Level:  LevelInfo,
		User:   "U",
		Fmt:    "n=%d c=%c s=%s p=%p rest=%d",
		Fields: [][]byte{{0xff, 0xff, 0xff, 0xfe}, {'z'}, []byte("str"), {0, 0, 0, 0, 0, 0, 0x10, 0}},
	}
	assert.Equal(t, "n=-2 c=z s=str p=0x1000 rest=%d", r.Message())
	assert.Equal(t, time.Unix(1700000000, 250000), r.Timestamp())
	assert.Contains(t, r.Format(), "[7][U][INFO]: n=-2")
}
