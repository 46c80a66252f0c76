package iterator

import "bytes"

// fakeIterator is a slice-backed Iterator used across this package's
// tests to exercise HeapIterator/TwoMergeIterator/ConcatIterator without
// depending on the skiplist or sstable packages.
type fakeIterator struct {
	entries []fakeEntry
	pos     int
}

type fakeEntry struct {
	key   string
	value string
	tid   uint64
}

func newFake(entries ...fakeEntry) *fakeIterator {
	return &fakeIterator{entries: entries, pos: -1}
}

func (f *fakeIterator) SeekToFirst() { f.pos = 0 }

func (f *fakeIterator) Seek(target []byte) {
	for i, e := range f.entries {
		if bytes.Compare([]byte(e.key), target) >= 0 {
			f.pos = i
			return
		}
	}
	f.pos = len(f.entries)
}

func (f *fakeIterator) Next() {
	if f.pos < len(f.entries) {
		f.pos++
	}
}

func (f *fakeIterator) Valid() bool { return f.pos >= 0 && f.pos < len(f.entries) }
func (f *fakeIterator) Key() []byte { return []byte(f.entries[f.pos].key) }
func (f *fakeIterator) Value() []byte {
	return []byte(f.entries[f.pos].value)
}
func (f *fakeIterator) Tid() uint64       { return f.entries[f.pos].tid }
func (f *fakeIterator) IsTombstone() bool { return f.entries[f.pos].value == "" }
