package block

import "bytes"

// Iterator is a cursor over one decoded block: (block, index, view_tid,
// cached-kv). It can be positioned by index or by key; every position
// change re-applies skip_by_tid so the cursor never rests on a
// version shadowed under the active view.
type Iterator struct {
	reader  *Reader
	index   int
	viewTid uint64
}

// NewIterator builds a cursor over reader for reads made under viewTid
// (0 means "always the newest version").
func NewIterator(reader *Reader, viewTid uint64) *Iterator {
	return &Iterator{reader: reader, viewTid: viewTid}
}

func (it *Iterator) SeekToFirst() {
	it.index = 0
	it.skipByTid()
}

// SeekToIndex positions the cursor at a raw entry index, then re-applies
// the MVCC visibility rule (used when a caller already knows which
// key-group to land in, e.g. from the SST's find_block_idx).
func (it *Iterator) SeekToIndex(i int) {
	it.index = i
	it.skipByTid()
}

// Seek positions the cursor at the first entry whose key is >= target.
func (it *Iterator) Seek(target []byte) {
	lo, hi := 0, it.reader.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(it.reader.KeyAt(mid), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.index = lo
	it.skipByTid()
}

func (it *Iterator) Next() {
	it.index++
	it.skipByTid()
}

// skipByTid enforces spec §4.4's visibility rule, independent of how the
// cursor arrived at its current index: with no view, land on the first
// (newest) occurrence of the current key-group; with a view, find the
// first version in the group visible under it, or skip the whole group
// and re-apply the rule to whatever follows.
func (it *Iterator) skipByTid() {
	if it.viewTid == 0 {
		for it.index > 0 && it.index < it.reader.Size() &&
			bytes.Equal(it.reader.KeyAt(it.index), it.reader.KeyAt(it.index-1)) {
			it.index++
		}
		return
	}

	for it.index < it.reader.Size() {
		key := it.reader.KeyAt(it.index)
		groupEnd := it.index
		found := -1
		for groupEnd < it.reader.Size() && bytes.Equal(it.reader.KeyAt(groupEnd), key) {
			if found < 0 && it.reader.TidAt(groupEnd) <= it.viewTid {
				found = groupEnd
			}
			groupEnd++
		}
		if found >= 0 {
			it.index = found
			return
		}
		it.index = groupEnd
	}
}

func (it *Iterator) Valid() bool       { return it.index < it.reader.Size() }
func (it *Iterator) Key() []byte       { return it.reader.KeyAt(it.index) }
func (it *Iterator) Value() []byte     { return it.reader.ValueAt(it.index) }
func (it *Iterator) Tid() uint64       { return it.reader.TidAt(it.index) }
func (it *Iterator) IsTombstone() bool { return it.Valid() && len(it.Value()) == 0 }

// Index reports the raw entry index the cursor currently rests on.
func (it *Iterator) Index() int { return it.index }

// Equal compares (block identity, index), per spec §4.4.
func (it *Iterator) Equal(other *Iterator) bool {
	return it.reader == other.reader && it.index == other.index
}
