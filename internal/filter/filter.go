// Package filter selects decoded records for output.
package filter

import (
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// Filter decides whether a record passes.
type Filter interface {
	Match(r *entry.Record) bool
	Name() string
}

// MatchMode controls how the filters of a chain combine.
type MatchMode int

const (
	// MatchAll passes only if every filter matches.
	MatchAll MatchMode = iota
	// MatchAny passes if some filter matches.
	MatchAny
)

// Chain combines filters under one match mode.
type Chain struct {
	filters []Filter
	mode    MatchMode
}

// NewChain creates a chain with the given mode.
func NewChain(mode MatchMode, filters ...Filter) *Chain {
	return &Chain{filters: filters, mode: mode}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Match evaluates the chain. An empty or nil chain passes everything.
func (c *Chain) Match(r *entry.Record) bool {
	if c == nil || len(c.filters) == 0 {
		return true
	}
	if c.mode == MatchAny {
		for _, f := range c.filters {
			if f.Match(r) {
				return true
			}
		}
		return false
	}
	for _, f := range c.filters {
		if !f.Match(r) {
			return false
		}
	}
	return true
}

// Name describes the chain.
func (c *Chain) Name() string {
	if c.mode == MatchAny {
		return "chain(any)"
	}
	return "chain(all)"
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.filters)
}
