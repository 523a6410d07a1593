// Package sink writes drained records to their destinations.
package sink

import (
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
)

// Sink receives filtered records.
type Sink interface {
	Write(r *entry.Record) error

	// Flush ensures buffered output is written.
	Flush() error

	Close() error
	Name() string
}
