package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(format string) []Conversion {
	var out []Conversion
	Scan(format, func(c Conversion) bool {
		out = append(out, c)
		return true
	})
	return out
}

func TestNextClassification(t *testing.T) {
	tests := []struct {
		format string
		kind   Kind
		verb   byte
		flags  string
		slots  int
	}{
		{"%d", KindInt, 'd', "", 1},
		{"%i", KindInt, 'i', "", 1},
		{"%o", KindInt, 'o', "", 1},
		{"%x", KindInt, 'x', "", 1},
		{"%X", KindInt, 'X', "", 1},
		{"%u", KindInt, 'u', "", 1},
		{"%r", KindInt, 'r', "", 1},
		{"%c", KindChar, 'c', "", 1},
		{"%p", KindPointer, 'p', "", 1},
		{"%s", KindString, 's', "", 1},
		{"%Tm", KindMem, 'T', "", 2},
		{"%T", KindInt, 'T', "", 1},
		{"%k", KindInt, 'k', "", 1},
		{"%-08.3d", KindInt, 'd', "-08.3", 1},
		{"%*s", KindString, 's', "*", 1},
		{"%#lx", KindInt, 'x', "#", 1},
		{"%lld", KindInt, 'd', "", 1},
		{"%zu", KindInt, 'u', "", 1},
		{"% 5hhd", KindInt, 'd', " 5", 1},
		{"%%", KindPercent, '%', "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			c, ok := Next(tt.format, 0)
			require.True(t, ok)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.verb, c.Verb)
			assert.Equal(t, tt.flags, c.Flags)
			assert.Equal(t, tt.slots, c.Slots())
			assert.Equal(t, 0, c.Start)
			assert.Equal(t, len(tt.format), c.End)
		})
	}
}

func TestNextIncomplete(t *testing.T) {
	for _, format := range []string{"", "plain", "trailing %", "%-5", "%l", "%.*"} {
		_, ok := Next(format, 0)
		assert.False(t, ok, format)
	}
}

func TestScanMixed(t *testing.T) {
	convs := collect("a=%d b=%s 100%% m=%Tm end %")
	require.Len(t, convs, 4)
	assert.Equal(t, KindInt, convs[0].Kind)
	assert.Equal(t, KindString, convs[1].Kind)
	assert.Equal(t, KindPercent, convs[2].Kind)
	assert.Equal(t, KindMem, convs[3].Kind)
	assert.Equal(t, "%Tm", "a=%d b=%s 100%% m=%Tm end %"[convs[3].Start:convs[3].End])
}

func TestScanStops(t *testing.T) {
	n := 0
	Scan("%d %d %d", func(Conversion) bool {
		n++
		return n < 2
	})
	assert.Equal(t, 2, n)
}

func TestWalkSlots(t *testing.T) {
	var slots []int
	Walk("%d %% %Tm %s", 0, 12, func(c Conversion, slot int) bool {
		slots = append(slots, slot)
		return true
	})
	assert.Equal(t, []int{0, 1, 3}, slots)
	assert.Equal(t, 4, Slots("%d %% %Tm %s", 12))
}

func TestWalkTruncatesAtArgsMax(t *testing.T) {
	format := ""
	for i := 0; i < 13; i++ {
		format += "%d "
	}
	assert.Equal(t, 12, Slots(format, 12))

	// A memory dump needs two slots and is dropped when only one is left.
	assert.Equal(t, 11, Slots("%d %d %d %d %d %d %d %d %d %d %d %Tm %d", 12))
}

func TestWalkFirstSlot(t *testing.T) {
	var got []int
	Walk("%s %d", 1, 12, func(c Conversion, slot int) bool {
		got = append(got, slot)
		return true
	})
	assert.Equal(t, []int{1, 2}, got)
}

func TestFits(t *testing.T) {
	mem := Conversion{Kind: KindMem}
	assert.True(t, mem.Fits(10, 12))
	assert.False(t, mem.Fits(11, 12))
	assert.True(t, Conversion{Kind: KindInt}.Fits(11, 12))
	assert.True(t, Conversion{Kind: KindPointer}.Inline())
	assert.False(t, Conversion{Kind: KindString}.Inline())
}
