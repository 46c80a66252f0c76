package iterator

import (
	"bytes"
	"container/heap"
)

// HeapSource pairs a source cursor with the metadata used to break ties
// when two sources agree on key and tid: level ascending, then
// sourceIndex ascending (smaller wins). Level 0's heap iterator callers
// pass sourceIndex = -sst_id so a newer (larger-id) SST outranks an
// older one, per spec §4.8/§5.
type HeapSource struct {
	Iter        Iterator
	SourceIndex int
	Level       int
}

// searchItem is one entry in the priority queue: a materialized
// (key, tid, sourceIndex, level) snapshot of a source's current
// position, plus which source produced it.
type searchItem struct {
	key    []byte
	value  []byte
	tid    uint64
	source int
	level  int
	tomb   bool
}

// itemHeap orders by key ascending, then tid descending, then level
// ascending, then sourceIndex ascending — the total order spec §4.8
// requires so that, among entries for the same key, the item that should
// win an MVCC read surfaces first.
type itemHeap []searchItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if c := bytes.Compare(a.key, b.key); c != 0 {
		return c < 0
	}
	if a.tid != b.tid {
		return a.tid > b.tid
	}
	if a.level != b.level {
		return a.level < b.level
	}
	return a.source < b.source
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(searchItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// HeapIterator performs the K-way merge of spec §4.8: it consumes an
// entire "key group" per advance (one item per source sharing the
// winning key), selects the first group member (in heap order) visible
// under viewTid, optionally suppresses tombstones, and otherwise emits
// that item. MVCC version selection is encapsulated here rather than
// pushed onto the caller.
type HeapIterator struct {
	sources     []HeapSource
	h           itemHeap
	viewTid     uint64
	filterEmpty bool

	valid bool
	key   []byte
	value []byte
	tid   uint64
	tomb  bool
}

// NewHeapIterator builds a heap iterator over sources, already positioned
// (by the caller, via SeekToFirst or Seek) at their starting cursors.
// filterEmpty suppresses tombstone groups, as the top-level scan paths do;
// compaction passes filterEmpty=false so tombstones stream through until
// the deepest-level drop rule applies.
func NewHeapIterator(sources []HeapSource, viewTid uint64, filterEmpty bool) *HeapIterator {
	it := &HeapIterator{sources: sources, viewTid: viewTid, filterEmpty: filterEmpty}
	it.rebuild()
	it.advanceToVisible()
	return it
}

func (it *HeapIterator) rebuild() {
	it.h = it.h[:0]
	for i, s := range it.sources {
		if s.Iter.Valid() {
			heap.Push(&it.h, it.snapshot(i))
		}
	}
}

func (it *HeapIterator) snapshot(sourceIdx int) searchItem {
	s := it.sources[sourceIdx]
	return searchItem{
		key:    s.Iter.Key(),
		value:  s.Iter.Value(),
		tid:    s.Iter.Tid(),
		source: s.SourceIndex,
		level:  s.Level,
		tomb:   s.Iter.IsTombstone(),
	}
}

// sourceByIndex finds the HeapSource whose SourceIndex field matches a
// popped item's source identity. Sources are few (memtable tier depth,
// or L0 width), so a linear scan is simpler than keeping a parallel map
// and is not on the hot path of block-level iteration.
func (it *HeapIterator) sourceByIndex(sourceIndex int) int {
	for i, s := range it.sources {
		if s.SourceIndex == sourceIndex {
			return i
		}
	}
	return -1
}

// advanceToVisible pops groups of equal-key items until it finds one
// satisfying MVCC visibility (and, if requested, non-tombstone), or the
// heap is exhausted.
func (it *HeapIterator) advanceToVisible() {
	for it.h.Len() > 0 {
		top := it.h[0]
		group := []searchItem{}
		for it.h.Len() > 0 && bytes.Equal(it.h[0].key, top.key) {
			group = append(group, heap.Pop(&it.h).(searchItem))
		}

		// Advance every source that contributed to this group and
		// re-push it if it still has more entries.
		for _, item := range group {
			idx := it.sourceByIndex(item.source)
			src := it.sources[idx].Iter
			src.Next()
			if src.Valid() {
				heap.Push(&it.h, it.snapshot(idx))
			}
		}

		// Group is already sorted the way itemHeap.Less wants: find the
		// first whose tid <= viewTid (viewTid == 0 means "ignore MVCC").
		var selected *searchItem
		for i := range group {
			if it.viewTid == 0 || group[i].tid <= it.viewTid {
				selected = &group[i]
				break
			}
		}
		if selected == nil {
			continue // nothing in this group is visible; try next group
		}
		if it.filterEmpty && len(selected.value) == 0 {
			continue // tombstone suppressed; try next group
		}

		it.valid = true
		it.key = selected.key
		it.value = selected.value
		it.tid = selected.tid
		it.tomb = len(selected.value) == 0
		return
	}
	it.valid = false
}

func (it *HeapIterator) SeekToFirst() {
	for _, s := range it.sources {
		s.Iter.SeekToFirst()
	}
	it.rebuild()
	it.advanceToVisible()
}

func (it *HeapIterator) Seek(target []byte) {
	for _, s := range it.sources {
		s.Iter.Seek(target)
	}
	it.rebuild()
	it.advanceToVisible()
}

func (it *HeapIterator) Next() {
	if !it.valid {
		return
	}
	it.advanceToVisible()
}

func (it *HeapIterator) Key() []byte       { return it.key }
func (it *HeapIterator) Value() []byte     { return it.value }
func (it *HeapIterator) Tid() uint64       { return it.tid }
func (it *HeapIterator) Valid() bool       { return it.valid }
func (it *HeapIterator) IsTombstone() bool { return it.tomb }
