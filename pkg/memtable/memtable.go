// Package memtable implements the memtable tier of spec §4.2: one active
// skip list accepting writes and a FIFO deque of frozen skip lists that
// migrate to L0 on flush.
package memtable

import (
	"fmt"
	"sync"

	"github.com/lsmtree/lsmtree/pkg/cache"
	"github.com/lsmtree/lsmtree/pkg/iterator"
	"github.com/lsmtree/lsmtree/pkg/skiplist"
	"github.com/lsmtree/lsmtree/pkg/sstable"
)

// BatchResult is one GetBatch outcome: Found is false when the key was
// never written to this memtable tier; Found true with an empty Value is
// the tombstone case ("deleted, stop").
type BatchResult struct {
	Value []byte
	Found bool
}

// MemTable is the active-plus-frozen skip list tier every write and read
// passes through before touching L0.
type MemTable struct {
	mu       sync.RWMutex
	perLimit int64
	active   *skiplist.SkipList
	// frozen is newest-first: frozen[0] is the most recently frozen
	// table, frozen[len-1] is the oldest and the next one flushed.
	frozen []*skiplist.SkipList
}

// New creates an empty memtable tier that freezes its active skip list
// once it exceeds perMemTableLimit bytes.
func New(perMemTableLimit int64) *MemTable {
	return &MemTable{perLimit: perMemTableLimit, active: skiplist.New()}
}

func (m *MemTable) freezeIfFullLocked() {
	if m.active.ApproximateSize() > m.perLimit {
		m.frozen = append([]*skiplist.SkipList{m.active}, m.frozen...)
		m.active = skiplist.New()
	}
}

// Put writes (key, value) under tid, freezing the active table if it now
// exceeds the byte limit.
func (m *MemTable) Put(key, value []byte, tid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active.Put(key, value, tid)
	m.freezeIfFullLocked()
}

// PutBatch writes every (key, value) pair under the same tid.
func (m *MemTable) PutBatch(kvs []skiplist.Entry, tid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kv := range kvs {
		m.active.Put(kv.Key, kv.Value, tid)
	}
	m.freezeIfFullLocked()
}

// Remove writes the tombstone encoding (a PUT with an empty value) for
// key under tid — the only deletion encoding, per spec §3.
func (m *MemTable) Remove(key []byte, tid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active.Put(key, nil, tid)
	m.freezeIfFullLocked()
}

// RemoveBatch tombstones every key under the same tid.
func (m *MemTable) RemoveBatch(keys [][]byte, tid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.active.Put(k, nil, tid)
	}
	m.freezeIfFullLocked()
}

// getLocked consults active, then the frozen deque newest-first, halting
// at the first hit including an empty-value tombstone, per spec §4.2's
// invariant.
func (m *MemTable) getLocked(key []byte, viewTid uint64) BatchResult {
	if e, ok := m.active.Get(key, viewTid); ok {
		return BatchResult{Value: e.Value, Found: true}
	}
	for _, f := range m.frozen {
		if e, ok := f.Get(key, viewTid); ok {
			return BatchResult{Value: e.Value, Found: true}
		}
	}
	return BatchResult{}
}

// Get looks up key as of viewTid (0 means the newest version).
func (m *MemTable) Get(key []byte, viewTid uint64) BatchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(key, viewTid)
}

// GetBatch looks up every key as of viewTid, preserving input order.
func (m *MemTable) GetBatch(keys [][]byte, viewTid uint64) []BatchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]BatchResult, len(keys))
	for i, k := range keys {
		results[i] = m.getLocked(k, viewTid)
	}
	return results
}

// LatestTid reports the newest tid on record for key across the whole
// tier, ignoring visibility entirely — the memtable-side half of the
// transaction commit conflict check of spec §4.11.
func (m *MemTable) LatestTid(key []byte) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.active.Get(key, 0); ok {
		return e.Tid, true
	}
	for _, f := range m.frozen {
		if e, ok := f.Get(key, 0); ok {
			return e.Tid, true
		}
	}
	return 0, false
}

// HasFrozen reports whether any frozen table is waiting to be flushed.
func (m *MemTable) HasFrozen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.frozen) > 0
}

// ActiveSize is the active skip list's approximate byte footprint, the
// value the engine compares against per_memtable_limit to decide whether
// to invoke flush synchronously.
func (m *MemTable) ActiveSize() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active.ApproximateSize()
}

// popOldestFrozen freezes the active table first if nothing is frozen
// yet, then detaches the oldest frozen table (the deque tail) for
// flushing.
func (m *MemTable) popOldestFrozen() (*skiplist.SkipList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.frozen) == 0 {
		if m.active.ApproximateSize() == 0 {
			return nil, fmt.Errorf("memtable: nothing to flush")
		}
		m.frozen = append(m.frozen, m.active)
		m.active = skiplist.New()
	}

	oldest := m.frozen[len(m.frozen)-1]
	m.frozen = m.frozen[:len(m.frozen)-1]
	return oldest, nil
}

// FlushLast pops the oldest frozen skip list (freezing active first if
// none exists), streams its entries in ascending order into builder, and
// finalizes it into a new SST via blockCache, per spec §4.2. builder is
// expected to already be bound to the destination path/id/level, since
// those are fixed once the underlying file is created.
func (m *MemTable) FlushLast(builder *sstable.Builder, blockCache *cache.Cache) (*sstable.SST, error) {
	oldest, err := m.popOldestFrozen()
	if err != nil {
		return nil, err
	}
	for _, e := range oldest.Flush() {
		if err := builder.Add(e.Key, e.Value, e.Tid); err != nil {
			builder.Abort()
			return nil, err
		}
	}
	return builder.Build(blockCache)
}

// Iter returns a heap iterator over the whole tier: active (source index
// 0), then each frozen table newest-first (source index 1, 2, ...), per
// spec §4.2. Equal source-index ties never arise across distinct tables,
// so the smaller-index-wins rule alone reproduces the newest-to-oldest
// precedence the invariant requires.
func (m *MemTable) Iter(viewTid uint64, filterEmpty bool) *iterator.HeapIterator {
	return m.buildIter(nil, viewTid, filterEmpty)
}

// IterFrom is Iter bounded to start at the first key >= target.
func (m *MemTable) IterFrom(target []byte, viewTid uint64, filterEmpty bool) *iterator.HeapIterator {
	return m.buildIter(target, viewTid, filterEmpty)
}

func (m *MemTable) buildIter(target []byte, viewTid uint64, filterEmpty bool) *iterator.HeapIterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	position := func(it *skipListIterator) {
		if target == nil {
			it.SeekToFirst()
		} else {
			it.Seek(target)
		}
	}

	sources := make([]iterator.HeapSource, 0, 1+len(m.frozen))
	activeIt := newSkipListIterator(m.active)
	position(activeIt)
	sources = append(sources, iterator.HeapSource{Iter: activeIt, SourceIndex: 0, Level: 0})

	for i, f := range m.frozen {
		it := newSkipListIterator(f)
		position(it)
		sources = append(sources, iterator.HeapSource{Iter: it, SourceIndex: i + 1, Level: 0})
	}

	return iterator.NewHeapIterator(sources, viewTid, filterEmpty)
}
