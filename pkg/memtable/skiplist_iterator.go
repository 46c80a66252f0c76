package memtable

import (
	"bytes"

	"github.com/lsmtree/lsmtree/pkg/skiplist"
)

// skipListIterator adapts a *skiplist.Iterator (Valid/Next/Entry) to the
// iterator.Iterator contract the composed cursor stack expects.
type skipListIterator struct {
	list *skiplist.SkipList
	it   *skiplist.Iterator
}

func newSkipListIterator(list *skiplist.SkipList) *skipListIterator {
	return &skipListIterator{list: list, it: list.IterEnd()}
}

func (s *skipListIterator) SeekToFirst() {
	it := s.list.IterBegin()
	it.Next()
	s.it = it
}

// Seek positions at the first key >= target via the skip list's
// monotone-predicate scan: negative before target, 0 from target onward.
func (s *skipListIterator) Seek(target []byte) {
	s.it = s.list.IterPredicate(func(key []byte) int {
		if bytes.Compare(key, target) < 0 {
			return -1
		}
		return 0
	})
}

func (s *skipListIterator) Next() { s.it.Next() }
func (s *skipListIterator) Valid() bool {
	return s.it.Valid()
}
func (s *skipListIterator) Key() []byte   { return s.it.Entry().Key }
func (s *skipListIterator) Value() []byte { return s.it.Entry().Value }
func (s *skipListIterator) Tid() uint64   { return s.it.Entry().Tid }
func (s *skipListIterator) IsTombstone() bool {
	return s.Valid() && len(s.Value()) == 0
}
