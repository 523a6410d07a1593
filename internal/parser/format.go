// Package parser classifies printf-style conversions in raw log format
// strings. The producer, the drainer and the display expander all walk a
// format with the same rules so that they agree on argument slots.
package parser

import "strings"

// Kind classifies a conversion.
type Kind uint8

const (
	KindPercent Kind = iota // "%%", consumes nothing
	KindInt                 // inline 32-bit integer
	KindChar                // inline character
	KindPointer             // inline pointer ID
	KindString              // out-of-line NUL-terminated string
	KindMem                 // out-of-line memory dump plus length slot
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPercent:
		return "percent"
	case KindInt:
		return "int"
	case KindChar:
		return "char"
	case KindPointer:
		return "pointer"
	case KindString:
		return "string"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// Conversion is one conversion specification found in a format.
type Conversion struct {
	Start int    // index of '%'
	End   int    // index just past the conversion letter(s)
	Verb  byte   // conversion letter, 'T' for "%Tm"
	Flags string // flags, width and precision; length modifiers dropped
	Kind  Kind
}

// Slots returns the number of argument slots the conversion consumes.
func (c Conversion) Slots() int {
	switch c.Kind {
	case KindPercent:
		return 0
	case KindMem:
		return 2
	default:
		return 1
	}
}

// Inline reports whether the argument value lives in the header slot itself.
func (c Conversion) Inline() bool {
	return c.Kind == KindInt || c.Kind == KindChar || c.Kind == KindPointer
}

// Fits reports whether the conversion still fits when slot k is next free.
func (c Conversion) Fits(k, argsMax int) bool {
	return k+c.Slots() <= argsMax
}

const (
	flagChars   = "#-+ 0"
	widthChars  = "*0123456789"
	lengthChars = "hlLqjzt"
)

// Next returns the first conversion starting at or after pos. A stray '%'
// at the end of the format, or a specification cut short by the end of the
// string, is not a conversion.
func Next(format string, pos int) (Conversion, bool) {
	for i := pos; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		start := i
		i++
		if i >= len(format) {
			return Conversion{}, false
		}
		if format[i] == '%' {
			return Conversion{Start: start, End: i + 1, Verb: '%', Kind: KindPercent}, true
		}

		j := skip(format, i, flagChars)
		j = skip(format, j, widthChars)
		if j < len(format) && format[j] == '.' {
			j = skip(format, j+1, widthChars)
		}
		flagsEnd := j
		j = skip(format, j, lengthChars)
		if j >= len(format) {
			return Conversion{}, false
		}

		c := Conversion{Start: start, Verb: format[j], Flags: format[i:flagsEnd]}
		j++
		switch c.Verb {
		case 'c':
			c.Kind = KindChar
		case 'p':
			c.Kind = KindPointer
		case 's':
			c.Kind = KindString
		case 'T':
			if j < len(format) && format[j] == 'm' {
				c.Kind = KindMem
				j++
			} else {
				c.Kind = KindInt
			}
		default:
			// d i o x X u r and anything unrecognised take an int.
			c.Kind = KindInt
		}
		c.End = j
		return c, true
	}
	return Conversion{}, false
}

// Scan calls fn for each conversion in format until fn returns false.
func Scan(format string, fn func(Conversion) bool) {
	pos := 0
	for {
		c, ok := Next(format, pos)
		if !ok || !fn(c) {
			return
		}
		pos = c.End
	}
}

// Walk calls fn for each argument-consuming conversion together with its
// first slot, beginning at slot first. It stops at the first conversion that
// would not fit in argsMax slots or when fn returns false.
func Walk(format string, first, argsMax int, fn func(c Conversion, slot int) bool) {
	slot := first
	Scan(format, func(c Conversion) bool {
		if c.Kind == KindPercent {
			return true
		}
		if !c.Fits(slot, argsMax) {
			return false
		}
		if !fn(c, slot) {
			return false
		}
		slot += c.Slots()
		return true
	})
}

// Slots returns the number of argument slots format needs, capped by
// truncation at argsMax.
func Slots(format string, argsMax int) int {
	n := 0
	Walk(format, 0, argsMax, func(c Conversion, slot int) bool {
		n = slot + c.Slots()
		return true
	})
	return n
}

func skip(s string, i int, set string) int {
	for i < len(s) && strings.IndexByte(set, s[i]) >= 0 {
		i++
	}
	return i
}
