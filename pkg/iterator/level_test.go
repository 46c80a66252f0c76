package iterator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelIteratorMergesAcrossTiers(t *testing.T) {
	memtable := newFake(fakeEntry{"b", "mem-b", 10})
	l0 := newFake(fakeEntry{"a", "l0-a", 8}, fakeEntry{"b", "l0-b-stale", 3})
	l1 := newFake(fakeEntry{"c", "l1-c", 1})

	it := NewLevelIterator([]Iterator{memtable, l0, l1})
	it.SeekToFirst()

	got := drain(it)
	require.Equal(t, []fakeEntry{
		{"a", "l0-a", 8},
		{"b", "mem-b", 10},
		{"c", "l1-c", 1},
	}, got)
}

func TestLevelIteratorSkipsTombstonesAcrossSources(t *testing.T) {
	memtable := newFake(fakeEntry{"a", "", 10})
	l0 := newFake(fakeEntry{"a", "shadowed", 3}, fakeEntry{"b", "keep", 1})

	it := NewLevelIterator([]Iterator{memtable, l0})
	it.SeekToFirst()

	got := drain(it)
	require.Equal(t, []fakeEntry{{"b", "keep", 1}}, got)
}

func TestLevelIteratorSeek(t *testing.T) {
	l0 := newFake(fakeEntry{"a", "1", 1}, fakeEntry{"b", "2", 1}, fakeEntry{"c", "3", 1})
	it := NewLevelIterator([]Iterator{l0})
	it.Seek([]byte("b"))
	require.True(t, it.Valid())
	require.Equal(t, "b", string(it.Key()))
}
