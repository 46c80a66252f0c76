package skiplist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	s.Put([]byte("alpha"), []byte("1"), 1)
	s.Put([]byte("beta"), []byte("2"), 2)

	e, ok := s.Get([]byte("alpha"), 2)
	require.True(t, ok)
	require.Equal(t, []byte("1"), e.Value)

	e, ok = s.Get([]byte("beta"), 2)
	require.True(t, ok)
	require.Equal(t, []byte("2"), e.Value)

	_, ok = s.Get([]byte("missing"), 2)
	require.False(t, ok)
}

func TestMVCCVisibility(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v1"), 10)
	s.Put([]byte("k"), []byte("v2"), 20)

	e, ok := s.Get([]byte("k"), 15)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), e.Value)

	e, ok = s.Get([]byte("k"), 25)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), e.Value)

	e, ok = s.Get([]byte("k"), 0)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), e.Value)
}

func TestTombstoneIsPutWithEmptyValue(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v1"), 1)
	s.Put([]byte("k"), []byte(""), 3)

	e, ok := s.Get([]byte("k"), 3)
	require.True(t, ok)
	require.Empty(t, e.Value)

	e, ok = s.Get([]byte("k"), 2)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), e.Value)
}

func TestIdenticalKeyTidUpdatesInPlace(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v1"), 5)
	s.Put([]byte("k"), []byte("v2"), 5)

	entries := s.Flush()
	count := 0
	for _, e := range entries {
		if string(e.Key) == "k" && e.Tid == 5 {
			count++
			require.Equal(t, []byte("v2"), e.Value)
		}
	}
	require.Equal(t, 1, count)
}

func TestFlushOrdering(t *testing.T) {
	s := New()
	keys := []string{"d", "b", "a", "c"}
	for i, k := range keys {
		s.Put([]byte(k), []byte("v"), uint64(i+1))
	}
	entries := s.Flush()
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		require.LessOrEqual(t, string(entries[i-1].Key), string(entries[i].Key))
	}
}

func TestFlushOrderingWithinKeyIsTidDescending(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v1"), 1)
	s.Put([]byte("k"), []byte("v2"), 2)
	s.Put([]byte("k"), []byte("v3"), 3)

	entries := s.Flush()
	require.Len(t, entries, 3)
	require.Equal(t, uint64(3), entries[0].Tid)
	require.Equal(t, uint64(2), entries[1].Tid)
	require.Equal(t, uint64(1), entries[2].Tid)
}

func TestIteratorBasic(t *testing.T) {
	s := New()
	for i := 0; i < 100; i++ {
		s.Put([]byte(fmt.Sprintf("key%03d", i)), []byte("v"), uint64(i+1))
	}

	it := s.IterBegin()
	it.Next()
	count := 0
	for ; it.Valid(); it.Next() {
		count++
	}
	require.Equal(t, 100, count)
}

func TestIterPrefix(t *testing.T) {
	s := New()
	for _, k := range []string{"aa", "ab", "ac", "b", "ba"} {
		s.Put([]byte(k), []byte("v"), 1)
	}

	it := s.IterPrefix([]byte("a"))
	var got []string
	for ; it.Valid(); it.Next() {
		got = append(got, string(it.Entry().Key))
	}
	require.Equal(t, []string{"aa", "ab", "ac"}, got)
}

func TestIterPrefixEmpty(t *testing.T) {
	s := New()
	s.Put([]byte("zzz"), []byte("v"), 1)
	it := s.IterPrefix([]byte("a"))
	require.False(t, it.Valid())
}

func TestRemove(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v"), 1)
	require.True(t, s.Remove([]byte("k"), 1))
	_, ok := s.Get([]byte("k"), 0)
	require.False(t, ok)
	require.False(t, s.Remove([]byte("k"), 1))
}

func TestApproximateSize(t *testing.T) {
	s := New()
	require.Zero(t, s.ApproximateSize())
	s.Put([]byte("k"), []byte("v"), 1)
	require.Greater(t, s.ApproximateSize(), int64(0))
}
