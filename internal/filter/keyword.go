package filter

import (
	"strings"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// KeywordFilter matches records whose user or message contains a keyword.
type KeywordFilter struct {
	keyword string
}

// NewKeywordFilter creates a keyword filter.
func NewKeywordFilter(keyword string) *KeywordFilter {
	return &KeywordFilter{keyword: keyword}
}

// Match reports whether the keyword occurs in the user or the message.
func (f *KeywordFilter) Match(r *entry.Record) bool {
	return strings.Contains(r.User, f.keyword) || strings.Contains(r.Message(), f.keyword)
}

// Name returns the filter description.
func (f *KeywordFilter) Name() string { return "keyword:" + f.keyword }
