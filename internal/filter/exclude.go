package filter

import (
	"strings"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// ExcludeFilter rejects records whose message contains any pattern.
type ExcludeFilter struct {
	patterns []string
}

// NewExcludeFilter creates a filter rejecting any of patterns.
func NewExcludeFilter(patterns ...string) *ExcludeFilter {
	return &ExcludeFilter{patterns: patterns}
}

// Match returns false if the message contains an excluded pattern.
func (f *ExcludeFilter) Match(r *entry.Record) bool {
	msg := r.Message()
	for _, p := range f.patterns {
		if strings.Contains(msg, p) {
			return false
		}
	}
	return true
}

// Name returns the filter description.
func (f *ExcludeFilter) Name() string {
	return "exclude:" + strings.Join(f.patterns, ",")
}
