package iterator

import "bytes"

// PredicateIterator bounds an inner Iterator to the contiguous interval
// {k : f(k) = 0} of a monotone predicate, the same contract the skip
// list's IterPredicate honors (spec §4.1), lifted to work over any
// composed Iterator (e.g. a LevelIterator spanning the whole LSM tree).
// f must return negative before the interval, 0 inside it, and positive
// after; behavior is unspecified if that contract is violated.
type PredicateIterator struct {
	inner Iterator
	f     func(key []byte) int
	valid bool
}

// NewPrefixIterator scans inner for the interval of keys carrying prefix.
func NewPrefixIterator(inner Iterator, prefix []byte) *PredicateIterator {
	return NewPredicateIterator(inner, func(key []byte) int {
		n := len(prefix)
		if len(key) < n {
			if bytes.Compare(key, prefix[:len(key)]) <= 0 {
				return -1
			}
			return 1
		}
		return bytes.Compare(key[:n], prefix)
	})
}

// NewPredicateIterator wraps inner with an arbitrary monotone predicate.
// The caller is responsible for having positioned inner at or before the
// interval (typically via SeekToFirst); NewPredicateIterator then skips
// forward past any entries where f < 0 and stops once f > 0.
func NewPredicateIterator(inner Iterator, f func(key []byte) int) *PredicateIterator {
	it := &PredicateIterator{inner: inner, f: f}
	it.settle()
	return it
}

func (it *PredicateIterator) settle() {
	for it.inner.Valid() && it.f(it.inner.Key()) < 0 {
		it.inner.Next()
	}
	it.valid = it.inner.Valid() && it.f(it.inner.Key()) == 0
}

func (it *PredicateIterator) SeekToFirst() {
	it.inner.SeekToFirst()
	it.settle()
}

func (it *PredicateIterator) Seek(target []byte) {
	it.inner.Seek(target)
	it.settle()
}

func (it *PredicateIterator) Next() {
	if !it.valid {
		return
	}
	it.inner.Next()
	it.settle()
}

func (it *PredicateIterator) Key() []byte       { return it.inner.Key() }
func (it *PredicateIterator) Value() []byte     { return it.inner.Value() }
func (it *PredicateIterator) Tid() uint64       { return it.inner.Tid() }
func (it *PredicateIterator) Valid() bool       { return it.valid }
func (it *PredicateIterator) IsTombstone() bool { return it.inner.IsTombstone() }
