package iterator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(it Iterator) []fakeEntry {
	var out []fakeEntry
	for it.Valid() {
		out = append(out, fakeEntry{key: string(it.Key()), value: string(it.Value()), tid: it.Tid()})
		it.Next()
	}
	return out
}

func TestHeapIteratorMergesAndDedups(t *testing.T) {
	a := newFake(fakeEntry{"a", "a1", 5}, fakeEntry{"c", "c1", 5})
	b := newFake(fakeEntry{"a", "a-old", 2}, fakeEntry{"b", "b1", 3})

	sources := []HeapSource{
		{Iter: a, SourceIndex: 0, Level: 0},
		{Iter: b, SourceIndex: 1, Level: 1},
	}
	a.SeekToFirst()
	b.SeekToFirst()

	it := NewHeapIterator(sources, 0, true)
	got := drain(it)
	require.Equal(t, []fakeEntry{
		{"a", "a1", 5},
		{"b", "b1", 3},
		{"c", "c1", 5},
	}, got)
}

func TestHeapIteratorMVCCFiltering(t *testing.T) {
	a := newFake(fakeEntry{"k", "new", 20}, fakeEntry{"k", "old", 10})
	sources := []HeapSource{{Iter: a, SourceIndex: 0, Level: 0}}
	a.SeekToFirst()

	it := NewHeapIterator(sources, 15, true)
	require.True(t, it.Valid())
	require.Equal(t, "old", string(it.Value()))
}

func TestHeapIteratorSuppressesTombstones(t *testing.T) {
	a := newFake(fakeEntry{"k", "", 5}, fakeEntry{"z", "v", 5})
	sources := []HeapSource{{Iter: a, SourceIndex: 0, Level: 0}}
	a.SeekToFirst()

	it := NewHeapIterator(sources, 0, true)
	require.True(t, it.Valid())
	require.Equal(t, "z", string(it.Key()))
}

func TestTwoMergeIteratorPrefersA(t *testing.T) {
	a := newFake(fakeEntry{"k", "fromA", 1})
	b := newFake(fakeEntry{"k", "fromB", 1}, fakeEntry{"z", "z", 1})
	a.SeekToFirst()
	b.SeekToFirst()

	it := NewTwoMergeIterator(a, b)
	require.True(t, it.Valid())
	require.Equal(t, "fromA", string(it.Value()))
	it.Next()
	require.True(t, it.Valid())
	require.Equal(t, "z", string(it.Key()))
}

func TestConcatIteratorChainsDisjointRanges(t *testing.T) {
	s1 := newFake(fakeEntry{"a", "1", 1}, fakeEntry{"b", "2", 1})
	s2 := newFake(fakeEntry{"c", "3", 1})

	it := NewConcatIterator([]Iterator{s1, s2})
	it.SeekToFirst()
	got := drain(it)
	require.Equal(t, []fakeEntry{
		{"a", "1", 1}, {"b", "2", 1}, {"c", "3", 1},
	}, got)
}

func TestConcatIteratorSeek(t *testing.T) {
	s1 := newFake(fakeEntry{"a", "1", 1}, fakeEntry{"b", "2", 1})
	s2 := newFake(fakeEntry{"c", "3", 1}, fakeEntry{"d", "4", 1})

	it := NewConcatIterator([]Iterator{s1, s2})
	it.Seek([]byte("c"))
	require.True(t, it.Valid())
	require.Equal(t, "c", string(it.Key()))
}
