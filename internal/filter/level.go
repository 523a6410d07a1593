package filter

import (
	"regexp"
	"strings"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// levelWords maps level names found in free text to agent levels.
var levelWords = map[string]entry.Level{
	"ERROR":    entry.LevelError,
	"ERR":      entry.LevelError,
	"FATAL":    entry.LevelError,
	"PANIC":    entry.LevelError,
	"CRITICAL": entry.LevelError,
	"WARN":     entry.LevelWarn,
	"WARNING":  entry.LevelWarn,
	"INFO":     entry.LevelInfo,
	"DEBUG":    entry.LevelVerb,
	"TRACE":    entry.LevelVerb,
	"VERB":     entry.LevelVerb,
	"RING":     entry.LevelRing,
	"PACKET":   entry.LevelPacket,
}

var levelRegex = regexp.MustCompile(`(?i)\b(DEBUG|TRACE|VERB|INFO|RING|PACKET|WARN(?:ING)?|ERR(?:OR)?|FATAL|PANIC|CRITICAL)\b`)

// DetectLevel finds the first level name in text. It returns LevelUnknown
// when there is none.
func DetectLevel(text string) entry.Level {
	m := levelRegex.FindString(text)
	if m == "" {
		return entry.LevelUnknown
	}
	return levelWords[strings.ToUpper(m)]
}

// LevelFilter passes records whose level bit is in a mask.
type LevelFilter struct {
	mask entry.Level
}

// NewLevelFilter passes any of levels.
func NewLevelFilter(levels ...entry.Level) *LevelFilter {
	var mask entry.Level
	for _, l := range levels {
		mask |= l
	}
	return &LevelFilter{mask: mask}
}

// ParseLevels builds a filter from a comma-separated list of level names.
// Unknown names are ignored.
func ParseLevels(list string) *LevelFilter {
	var levels []entry.Level
	for _, s := range strings.Split(list, ",") {
		if l := entry.ParseLevel(s); l != entry.LevelUnknown {
			levels = append(levels, l)
		}
	}
	return NewLevelFilter(levels...)
}

// Match reports whether the record level is in the mask.
func (f *LevelFilter) Match(r *entry.Record) bool {
	return r.Level&f.mask != 0
}

// Name returns the filter description.
func (f *LevelFilter) Name() string {
	var names []string
	for _, l := range entry.Levels() {
		if f.mask&l != 0 {
			names = append(names, l.String())
		}
	}
	return "level:" + strings.Join(names, ",")
}
