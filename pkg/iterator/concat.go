package iterator

// ConcatIterator chains a sequence of iterators covering pairwise-disjoint,
// ascending key ranges — the shape of one level >= 1's SST list, or an L0
// merge output during compaction. Advance moves the current source; on
// end, it moves to the next source in the chain.
type ConcatIterator struct {
	sources []Iterator
	idx     int
}

// NewConcatIterator builds a concat iterator over sources already in
// ascending, disjoint-range order. The sources themselves are not
// repositioned; call SeekToFirst or Seek to establish a start point.
func NewConcatIterator(sources []Iterator) *ConcatIterator {
	return &ConcatIterator{sources: sources}
}

func (it *ConcatIterator) SeekToFirst() {
	for i, s := range it.sources {
		s.SeekToFirst()
		if s.Valid() {
			it.idx = i
			return
		}
	}
	it.idx = len(it.sources)
}

// Seek finds the first source whose range can contain target and seeks
// it there; since ranges are disjoint and ascending, the first source
// that yields a valid position holds the smallest key >= target.
func (it *ConcatIterator) Seek(target []byte) {
	for i, s := range it.sources {
		s.Seek(target)
		if s.Valid() {
			it.idx = i
			return
		}
	}
	it.idx = len(it.sources)
}

func (it *ConcatIterator) Next() {
	if !it.Valid() {
		return
	}
	it.sources[it.idx].Next()
	for !it.sources[it.idx].Valid() {
		it.idx++
		if it.idx >= len(it.sources) {
			return
		}
		it.sources[it.idx].SeekToFirst()
	}
}

func (it *ConcatIterator) Valid() bool {
	return it.idx < len(it.sources) && it.sources[it.idx].Valid()
}

func (it *ConcatIterator) Key() []byte       { return it.sources[it.idx].Key() }
func (it *ConcatIterator) Value() []byte     { return it.sources[it.idx].Value() }
func (it *ConcatIterator) Tid() uint64       { return it.sources[it.idx].Tid() }
func (it *ConcatIterator) IsTombstone() bool { return it.sources[it.idx].IsTombstone() }
