package intern

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternDeduplicates(t *testing.T) {
	tab := New(64)
	a, err := tab.Intern("hello %d")
	require.NoError(t, err)
	b, err := tab.Intern("hello %d")
	require.NoError(t, err)
	c, err := tab.Intern("other")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, Nil, a)
	assert.Equal(t, 2, tab.Len())
	assert.Equal(t, "hello %d", tab.Lookup(a))
	assert.Equal(t, "other", tab.Lookup(c))
}

func TestLookupUnknown(t *testing.T) {
	tab := New(0)
	assert.Equal(t, NullString, tab.Lookup(Nil))
	assert.Equal(t, NullString, tab.Lookup(Handle(42)))
}

func TestInternTooLong(t *testing.T) {
	tab := New(4)
	_, err := tab.Intern("abcde")
	assert.ErrorIs(t, err, ErrTooLong)
	_, err = tab.Intern("abcd")
	assert.NoError(t, err)
	assert.Panics(t, func() { tab.MustIntern(strings.Repeat("x", 5)) })
}

func TestInternConcurrent(t *testing.T) {
	tab := New(0)
	var wg sync.WaitGroup
	handles := make([]Handle, 16)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = tab.MustIntern("shared")
		}(i)
	}
	wg.Wait()
	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
	assert.Equal(t, 1, tab.Len())
}
