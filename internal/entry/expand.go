package entry

import (
	"fmt"
	"strings"

	"github.com/oktetlabs/test-environment-sub029/internal/parser"
)

// NullString replaces string arguments that are absent or of the wrong kind.
const NullString = "(NULL)"

// FormatArgs expands format with producer arguments, applying the same
// coercion rules the ring applies to mismatched arguments.
func FormatArgs(format string, args []Arg) string {
	i := 0
	return expandWith(format, func(c parser.Conversion) (uint64, []byte, bool) {
		var a Arg
		if i < len(args) {
			a = args[i]
		}
		i++
		switch c.Kind {
		case parser.KindString:
			if !a.IsString() {
				return 0, []byte(NullString), true
			}
			b, _ := a.Payload()
			return 0, b, true
		case parser.KindMem:
			if !a.IsMem() {
				return 0, nil, true
			}
			b, _ := a.Payload()
			return 0, b, true
		default:
			return a.Word(), nil, true
		}
	})
}

// expand renders format with values pulled in order from next. Conversions
// left without a value are copied literally.
func expand(format string, next func() (uint64, []byte, bool)) string {
	return expandWith(format, func(parser.Conversion) (uint64, []byte, bool) {
		return next()
	})
}

func expandWith(format string, next func(c parser.Conversion) (uint64, []byte, bool)) string {
	var sb strings.Builder
	pos := 0
	parser.Scan(format, func(c parser.Conversion) bool {
		sb.WriteString(format[pos:c.Start])
		if c.Kind == parser.KindPercent {
			sb.WriteByte('%')
			pos = c.End
			return true
		}
		word, data, ok := next(c)
		if !ok {
			pos = c.Start
			return false
		}
		render(&sb, c, word, data)
		pos = c.End
		return true
	})
	sb.WriteString(format[pos:])
	return sb.String()
}

func render(sb *strings.Builder, c parser.Conversion, word uint64, data []byte) {
	flags := strings.ReplaceAll(c.Flags, "*", "")
	switch c.Kind {
	case parser.KindInt:
		switch c.Verb {
		case 'o', 'x', 'X':
			fmt.Fprintf(sb, "%"+flags+string(c.Verb), uint32(word))
		case 'u':
			fmt.Fprintf(sb, "%"+flags+"d", uint32(word))
		default:
			fmt.Fprintf(sb, "%"+flags+"d", int32(uint32(word)))
		}
	case parser.KindChar:
		sb.WriteByte(byte(word))
	case parser.KindPointer:
		fmt.Fprintf(sb, "0x%x", word)
	case parser.KindString:
		fmt.Fprintf(sb, "%"+flags+"s", data)
	case parser.KindMem:
		fmt.Fprintf(sb, "[% x]", data)
	}
}
