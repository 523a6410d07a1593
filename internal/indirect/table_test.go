package indirect

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindResolveRelease(t *testing.T) {
	tab := New[string](4)

	id, ok := tab.Bind("a")
	require.True(t, ok)
	assert.NotEqual(t, Nil, id)

	v, ok := tab.Resolve(id)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, tab.Len())

	assert.True(t, tab.Release(id))
	_, ok = tab.Resolve(id)
	assert.False(t, ok)
	assert.False(t, tab.Release(id), "double release")
	assert.Equal(t, 0, tab.Len())
}

func TestNilNeverResolves(t *testing.T) {
	tab := New[int](2)
	_, ok := tab.Resolve(Nil)
	assert.False(t, ok)
	assert.False(t, tab.Release(Nil))
	_, ok = tab.Resolve(ID(1 << 40))
	assert.False(t, ok, "index out of range")
}

func TestStaleIDAfterReuse(t *testing.T) {
	tab := New[int](1)
	first, ok := tab.Bind(1)
	require.True(t, ok)
	require.True(t, tab.Release(first))

	second, ok := tab.Bind(2)
	require.True(t, ok)
	assert.NotEqual(t, first, second, "recycled slot must carry a new generation")

	_, ok = tab.Resolve(first)
	assert.False(t, ok)
	v, ok := tab.Resolve(second)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCapacity(t *testing.T) {
	tab := New[int](3)
	var ids []ID
	for i := 0; i < 3; i++ {
		id, ok := tab.Bind(i)
		require.True(t, ok)
		ids = append(ids, id)
	}
	_, ok := tab.Bind(99)
	assert.False(t, ok)

	tab.Release(ids[1])
	_, ok = tab.Bind(99)
	assert.True(t, ok)
	assert.Equal(t, 3, tab.Cap())
}

func TestCapacityBeyondInitialSlots(t *testing.T) {
	const n = 3*initialSlots + 5
	tab := New[int](n)
	for i := 0; i < n; i++ {
		_, ok := tab.Bind(i)
		require.True(t, ok, "bind %d", i)
	}
	_, ok := tab.Bind(n)
	assert.False(t, ok)
	assert.Equal(t, n, tab.Len())
}

func TestConcurrentBindRelease(t *testing.T) {
	tab := New[int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id, ok := tab.Bind(g*1000 + i)
				if !ok {
					continue
				}
				v, ok := tab.Resolve(id)
				assert.True(t, ok)
				assert.Equal(t, g*1000+i, v)
				assert.True(t, tab.Release(id))
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 0, tab.Len())
}
