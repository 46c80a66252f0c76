package skiplist

import "bytes"

// Iterator is a forward cursor over the skip list's level-0 chain.
type Iterator struct {
	list    *SkipList
	current *node
}

// IterBegin returns an iterator positioned before the first entry; call
// Next once to reach the first valid position.
func (s *SkipList) IterBegin() *Iterator {
	return &Iterator{list: s, current: s.head}
}

// IterEnd returns an iterator already past the last entry (Valid() is
// false, Next() is a no-op), used as a sentinel end-of-range marker.
func (s *SkipList) IterEnd() *Iterator {
	return &Iterator{list: s, current: nil}
}

func (it *Iterator) Valid() bool {
	return it.current != nil
}

func (it *Iterator) Next() {
	if it.current == nil {
		return
	}
	it.current = it.current.forward[0]
}

func (it *Iterator) Entry() *Entry {
	if !it.Valid() {
		return nil
	}
	return it.current.entry
}

// IterPrefix bounds an iterator pair to the contiguous interval of keys
// sharing prefix p. It is the common case of the monotone-predicate scan
// below, built on top of it.
func (s *SkipList) IterPrefix(p []byte) *Iterator {
	return s.IterPredicate(func(key []byte) int {
		return comparePrefix(key, p)
	})
}

// comparePrefix implements the monotone predicate for a prefix bound:
// negative while key is strictly before the prefix range, 0 while key
// carries the prefix, positive once key has moved past it.
func comparePrefix(key, prefix []byte) int {
	n := len(prefix)
	if len(key) < n {
		// key is shorter than the prefix: it either sorts before the
		// whole interval or is a strict prefix of it, either way "before".
		if bytes.Compare(key, prefix[:len(key)]) <= 0 {
			return -1
		}
		return 1
	}
	return bytes.Compare(key[:n], prefix)
}

// IterPredicate performs the monotone-predicate scan of spec §4.1: given
// f such that {k : f(k) = 0} is a single contiguous interval in key
// order, walk top-down choosing the longest per-level step that stays
// strictly left of the interval (f(k) < 0), drop to level 0, enter the
// interval, then walk left via back-pointers to the first satisfying node
// and return an iterator there. Behavior is unspecified if f's contract
// is violated.
func (s *SkipList) IterPredicate(f func(key []byte) int) *Iterator {
	cur := s.head
	for level := s.height - 1; level >= 0; level-- {
		for cur.forward[level] != nil && f(cur.forward[level].entry.Key) < 0 {
			cur = cur.forward[level]
		}
	}

	// cur is now the rightmost node (at level 0 granularity) known to be
	// strictly left of the interval, or head. Step forward to find any
	// node in the interval.
	n := cur.forward[0]
	for n != nil && f(n.entry.Key) < 0 {
		n = n.forward[0]
	}
	if n == nil || f(n.entry.Key) != 0 {
		// No entry satisfies the predicate: empty interval.
		return s.IterEnd()
	}

	// Walk left via level-0 back-pointers to the first satisfying node.
	first := n
	for first.backward[0] != nil && first.backward[0] != s.head && f(first.backward[0].entry.Key) == 0 {
		first = first.backward[0]
	}

	return &Iterator{list: s, current: first}
}
