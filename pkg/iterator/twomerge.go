package iterator

import "bytes"

// TwoMergeIterator merges two ordered cursors A and B. On a tie, A wins
// and B's equal-key entry is advanced past — spec §4.8 uses this to
// overlay the (memtable + L0) tier, source A, on top of the (>= L1)
// tier, source B.
type TwoMergeIterator struct {
	a, b Iterator

	valid bool
	key   []byte
	value []byte
	tid   uint64
	tomb  bool
	fromA bool
}

// NewTwoMergeIterator builds a merge of a (preferred on ties) and b.
// Both must already be positioned by the caller (SeekToFirst or Seek).
func NewTwoMergeIterator(a, b Iterator) *TwoMergeIterator {
	it := &TwoMergeIterator{a: a, b: b}
	it.settle()
	return it
}

// settle recomputes the current position from a and b's cursors without
// advancing either — used after construction and after an external Seek.
func (it *TwoMergeIterator) settle() {
	switch {
	case !it.a.Valid() && !it.b.Valid():
		it.valid = false
	case it.a.Valid() && !it.b.Valid():
		it.take(true)
	case !it.a.Valid() && it.b.Valid():
		it.take(false)
	default:
		c := bytes.Compare(it.a.Key(), it.b.Key())
		switch {
		case c <= 0:
			it.take(true)
		default:
			it.take(false)
		}
	}
}

func (it *TwoMergeIterator) take(fromA bool) {
	it.valid = true
	it.fromA = fromA
	if fromA {
		it.key, it.value, it.tid, it.tomb = it.a.Key(), it.a.Value(), it.a.Tid(), it.a.IsTombstone()
	} else {
		it.key, it.value, it.tid, it.tomb = it.b.Key(), it.b.Value(), it.b.Tid(), it.b.IsTombstone()
	}
}

func (it *TwoMergeIterator) SeekToFirst() {
	it.a.SeekToFirst()
	it.b.SeekToFirst()
	it.settle()
}

func (it *TwoMergeIterator) Seek(target []byte) {
	it.a.Seek(target)
	it.b.Seek(target)
	it.settle()
}

func (it *TwoMergeIterator) Next() {
	if !it.valid {
		return
	}
	if it.fromA {
		// If B currently sits on the same key as A, it is stale data A
		// shadows; advance it past so it doesn't resurface later.
		if it.b.Valid() && bytes.Equal(it.b.Key(), it.key) {
			it.b.Next()
		}
		it.a.Next()
	} else {
		it.b.Next()
	}
	it.settle()
}

func (it *TwoMergeIterator) Key() []byte       { return it.key }
func (it *TwoMergeIterator) Value() []byte     { return it.value }
func (it *TwoMergeIterator) Tid() uint64       { return it.tid }
func (it *TwoMergeIterator) Valid() bool       { return it.valid }
func (it *TwoMergeIterator) IsTombstone() bool { return it.tomb }
