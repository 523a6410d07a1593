package filter

import (
	"fmt"
	"regexp"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// RegexFilter matches the expanded message against a compiled expression.
type RegexFilter struct {
	re *regexp.Regexp
}

// NewRegexFilter compiles pattern.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("filter: invalid regex %q: %w", pattern, err)
	}
	return &RegexFilter{re: re}, nil
}

// Match reports whether the message matches.
func (f *RegexFilter) Match(r *entry.Record) bool {
	return f.re.MatchString(r.Message())
}

// Name returns the filter description.
func (f *RegexFilter) Name() string { return "regex:" + f.re.String() }
