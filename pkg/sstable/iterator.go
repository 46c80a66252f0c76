package sstable

import "github.com/lsmtree/lsmtree/pkg/sstable/block"

// Iterator is the SST iterator of spec §4.8: (sst, block_index, block
// iterator, view_tid). Advance moves the block iterator; when it ends,
// the next block is loaded. Valid iff the block iterator is valid and
// block_index is in range.
type Iterator struct {
	sst      *SST
	blockIdx int
	blockIt  *block.Iterator
	viewTid  uint64
}

// Begin returns an iterator positioned at the SST's first entry visible
// under viewTid.
func (s *SST) Begin(viewTid uint64) *Iterator {
	it := &Iterator{sst: s, viewTid: viewTid}
	it.SeekToFirst()
	return it
}

// End returns an invalid, past-the-end iterator.
func (s *SST) End() *Iterator {
	return &Iterator{sst: s, blockIdx: len(s.metas)}
}

// Get returns an iterator positioned at key: a bloom-negative or
// absent-range probe returns an end iterator, otherwise the matching
// block is located and a block iterator constructed at key, per spec
// §4.6.
func (s *SST) Get(key []byte, viewTid uint64) (*Iterator, error) {
	if s.bloom != nil && !s.bloom.PossiblyContains(key) {
		return s.End(), nil
	}
	idx, ok := s.FindBlockIdx(key)
	if !ok {
		return s.End(), nil
	}

	it := &Iterator{sst: s, viewTid: viewTid}
	if err := it.loadBlock(idx); err != nil {
		return nil, err
	}
	it.blockIt.Seek(key)
	it.advancePastEmptyBlocks()
	return it, nil
}

func (it *Iterator) loadBlock(idx int) error {
	it.blockIdx = idx
	if idx >= len(it.sst.metas) {
		it.blockIt = nil
		return nil
	}
	r, err := it.sst.ReadBlock(idx)
	if err != nil {
		return err
	}
	it.blockIt = block.NewIterator(r, it.viewTid)
	return nil
}

// advancePastEmptyBlocks loads successive blocks while the current one
// is exhausted, so Valid() never lies about a block that ran dry.
func (it *Iterator) advancePastEmptyBlocks() {
	for it.blockIt != nil && !it.blockIt.Valid() {
		if err := it.loadBlock(it.blockIdx + 1); err != nil {
			it.blockIt = nil
			return
		}
		if it.blockIt == nil {
			return
		}
		it.blockIt.SeekToFirst()
	}
}

func (it *Iterator) SeekToFirst() {
	if err := it.loadBlock(0); err != nil {
		it.blockIt = nil
		return
	}
	if it.blockIt != nil {
		it.blockIt.SeekToFirst()
	}
	it.advancePastEmptyBlocks()
}

func (it *Iterator) Seek(target []byte) {
	idx, ok := it.sst.FindBlockIdx(target)
	if !ok {
		idx = it.sst.blockForSeek(target)
	}
	if err := it.loadBlock(idx); err != nil {
		it.blockIt = nil
		return
	}
	if it.blockIt != nil {
		it.blockIt.Seek(target)
	}
	it.advancePastEmptyBlocks()
}

func (it *Iterator) Next() {
	if it.blockIt == nil {
		return
	}
	it.blockIt.Next()
	it.advancePastEmptyBlocks()
}

func (it *Iterator) Valid() bool       { return it.blockIt != nil && it.blockIt.Valid() }
func (it *Iterator) Key() []byte       { return it.blockIt.Key() }
func (it *Iterator) Value() []byte     { return it.blockIt.Value() }
func (it *Iterator) Tid() uint64       { return it.blockIt.Tid() }
func (it *Iterator) IsTombstone() bool { return it.blockIt.IsTombstone() }
