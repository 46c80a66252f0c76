// Package iterator defines the cursor contract every layer of the engine
// composes against (skip list, block, sstable, concat, heap, two-merge,
// level) and implements the composite stages built purely out of that
// contract: HeapIterator (K-way merge), TwoMergeIterator, ConcatIterator,
// and PredicateIterator. Each composite holds handles to its sources and
// never reaches into a source's concrete type, so the same stages work
// whether the source is a skip list, a block, or another composite.
package iterator

// Iterator is the cursor contract shared by every stage of the scan
// pipeline: Level(Heap(memtable) ⊕ Heap(L0) ⊕ Concat(L1) ⊕ ...).
type Iterator interface {
	// SeekToFirst positions the cursor at the first entry.
	SeekToFirst()
	// Seek positions the cursor at the first entry with key >= target.
	Seek(target []byte)
	// Next advances to the next entry. Calling Next on an invalid
	// cursor is a no-op.
	Next()
	// Key returns the current entry's key. Only valid when Valid().
	Key() []byte
	// Value returns the current entry's value (empty for a tombstone).
	Value() []byte
	// Tid returns the current entry's transaction id.
	Tid() uint64
	// Valid reports whether the cursor is positioned at an entry.
	Valid() bool
	// IsTombstone reports whether the current entry is a deletion
	// marker (a PUT with an empty value).
	IsTombstone() bool
}
