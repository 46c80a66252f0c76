package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCachePutGet(t *testing.T) {
	c := New(4, 2)
	c.Put(Key{SSTID: 1, BlockID: 0}, "block-0")

	v, ok := c.Get(Key{SSTID: 1, BlockID: 0})
	require.True(t, ok)
	require.Equal(t, "block-0", v)

	_, ok = c.Get(Key{SSTID: 1, BlockID: 1})
	require.False(t, ok)
}

func TestCachePromotesToSeniorAfterKHits(t *testing.T) {
	c := New(4, 2)
	k := Key{SSTID: 1, BlockID: 0}
	c.Put(k, "v")

	_, _ = c.Get(k) // count 1, still junior
	require.Equal(t, 1, c.junior.Len())
	require.Equal(t, 0, c.senior.Len())

	_, _ = c.Get(k) // count 2 == K, promotes to senior
	require.Equal(t, 0, c.junior.Len())
	require.Equal(t, 1, c.senior.Len())
}

func TestCacheEvictsJuniorBeforeSenior(t *testing.T) {
	c := New(2, 2)
	hot := Key{SSTID: 1, BlockID: 0}
	cold := Key{SSTID: 1, BlockID: 1}

	c.Put(hot, "hot")
	c.Get(hot)
	c.Get(hot) // promoted to senior

	c.Put(cold, "cold") // cache now full: 1 senior + 1 junior

	// Inserting a third key should evict the junior entry (cold), not
	// the senior one (hot).
	third := Key{SSTID: 1, BlockID: 2}
	c.Put(third, "third")

	_, ok := c.Get(hot)
	require.True(t, ok)
	_, ok = c.Get(cold)
	require.False(t, ok)
	_, ok = c.Get(third)
	require.True(t, ok)
}

func TestCacheStats(t *testing.T) {
	c := New(4, 2)
	k := Key{SSTID: 1, BlockID: 0}
	c.Put(k, "v")
	c.Get(k)
	c.Get(Key{SSTID: 1, BlockID: 99})

	hits, total := c.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(2), total)
}
