package iterator

import "bytes"

// LevelIterator is the unified cursor spec §4.8 describes for range scans
// over the whole LSM tree: one heap iterator over the memtable tier, one
// heap iterator over L0 (overlapping ranges), and one concat iterator per
// level >= 1 (disjoint ranges). At every position it picks the source
// with the smallest current key and, on a tombstone, skips that key on
// every source before re-evaluating — so callers never observe a
// tombstone or a shadowed older version.
type LevelIterator struct {
	sources []Iterator

	valid bool
	key   []byte
	value []byte
	tid   uint64
}

// NewLevelIterator builds a level iterator over sources, ordered however
// the caller likes (memtable tier, L0, L1, L2, ...); order only affects
// which source wins ties reported by the underlying heap iterators, since
// MVCC version selection already happened inside them.
func NewLevelIterator(sources []Iterator) *LevelIterator {
	return &LevelIterator{sources: sources}
}

func (it *LevelIterator) SeekToFirst() {
	for _, s := range it.sources {
		s.SeekToFirst()
	}
	it.settle()
}

func (it *LevelIterator) Seek(target []byte) {
	for _, s := range it.sources {
		s.Seek(target)
	}
	it.settle()
}

// settle finds the smallest current key among sources and, if it is a
// tombstone, skips that key everywhere and tries again.
func (it *LevelIterator) settle() {
	for {
		idx := it.smallest()
		if idx < 0 {
			it.valid = false
			return
		}
		if it.sources[idx].IsTombstone() {
			it.skipKey(it.sources[idx].Key())
			continue
		}
		it.valid = true
		it.key = it.sources[idx].Key()
		it.value = it.sources[idx].Value()
		it.tid = it.sources[idx].Tid()
		return
	}
}

// smallest returns the index of the source currently positioned on the
// lexicographically smallest key, or -1 if every source is exhausted.
func (it *LevelIterator) smallest() int {
	best := -1
	for i, s := range it.sources {
		if !s.Valid() {
			continue
		}
		if best < 0 || bytes.Compare(s.Key(), it.sources[best].Key()) < 0 {
			best = i
		}
	}
	return best
}

// skipKey advances every source past all entries whose key equals k.
func (it *LevelIterator) skipKey(k []byte) {
	for _, s := range it.sources {
		for s.Valid() && bytes.Equal(s.Key(), k) {
			s.Next()
		}
	}
}

func (it *LevelIterator) Next() {
	if !it.valid {
		return
	}
	it.skipKey(it.key)
	it.settle()
}

func (it *LevelIterator) Key() []byte   { return it.key }
func (it *LevelIterator) Value() []byte { return it.value }
func (it *LevelIterator) Tid() uint64   { return it.tid }
func (it *LevelIterator) Valid() bool   { return it.valid }

// IsTombstone always reports false: settle() never stops on a tombstone.
func (it *LevelIterator) IsTombstone() bool { return false }
