package txn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the engine's merged read/write
// surface, keyed by (key, tid) the same way the memtable tier is.
type fakeStore struct {
	versions map[string][]entry
}

type entry struct {
	tid     uint64
	value   []byte
	deleted bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{versions: make(map[string][]entry)}
}

func (s *fakeStore) Get(key []byte, viewTid uint64) ([]byte, bool) {
	k := string(key)
	var best *entry
	for i := range s.versions[k] {
		e := &s.versions[k][i]
		if viewTid != 0 && e.tid > viewTid {
			continue
		}
		if best == nil || e.tid > best.tid {
			best = e
		}
	}
	if best == nil || best.deleted {
		return nil, false
	}
	return best.value, true
}

func (s *fakeStore) Put(key, value []byte, tid uint64) {
	k := string(key)
	s.versions[k] = append(s.versions[k], entry{tid: tid, value: value})
}

func (s *fakeStore) Remove(key []byte, tid uint64) {
	k := string(key)
	s.versions[k] = append(s.versions[k], entry{tid: tid, deleted: true})
}

func (s *fakeStore) LatestTidInMemtable(key []byte) (uint64, bool) {
	k := string(key)
	var best uint64
	found := false
	for _, e := range s.versions[k] {
		if !found || e.tid > best {
			best = e.tid
			found = true
		}
	}
	return best, found
}

type fakeLog struct {
	records []string
}

func (l *fakeLog) Begin(tid uint64) error                  { l.records = append(l.records, "begin"); return nil }
func (l *fakeLog) Put(tid uint64, key, value []byte) error { l.records = append(l.records, "put"); return nil }
func (l *fakeLog) Delete(tid uint64, key []byte) error     { l.records = append(l.records, "delete"); return nil }
func (l *fakeLog) Commit(tid uint64, forceFlush bool) error {
	l.records = append(l.records, "commit")
	return nil
}
func (l *fakeLog) Rollback(tid uint64) error { l.records = append(l.records, "rollback"); return nil }

type fakeSSTChecker struct {
	maxFlushedTid uint64
	tids          map[string]uint64
}

func (c *fakeSSTChecker) MaxFlushedTid() uint64 { return c.maxFlushedTid }
func (c *fakeSSTChecker) LatestTidInSSTs(key []byte) (uint64, bool) {
	tid, ok := c.tids[string(key)]
	return tid, ok
}

func newTestManager() (*Manager, *fakeStore, *fakeLog, *fakeSSTChecker) {
	store := newFakeStore()
	wlog := &fakeLog{}
	sst := &fakeSSTChecker{tids: make(map[string]uint64)}
	return NewManager(store, wlog, sst, nil), store, wlog, sst
}

func TestReadUncommittedWritesThroughImmediately(t *testing.T) {
	mgr, store, wlog, _ := newTestManager()
	tx := mgr.Begin(ReadUncommitted)

	require.NoError(t, tx.Put([]byte("a"), []byte("1")))
	value, found := store.Get([]byte("a"), 0)
	require.True(t, found)
	require.Equal(t, "1", string(value))
	require.Contains(t, wlog.records, "put")

	require.NoError(t, tx.Commit())
}

func TestReadCommittedBuffersUntilCommit(t *testing.T) {
	mgr, store, _, _ := newTestManager()
	tx := mgr.Begin(ReadCommitted)

	require.NoError(t, tx.Put([]byte("a"), []byte("1")))
	_, found := store.Get([]byte("a"), 0)
	require.False(t, found, "write must stay buffered before commit")

	value, found, err := tx.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1", string(value))

	require.NoError(t, tx.Commit())
	value, found = store.Get([]byte("a"), 0)
	require.True(t, found)
	require.Equal(t, "1", string(value))
}

func TestReadUncommittedRollbackRestoresPreImage(t *testing.T) {
	mgr, store, _, _ := newTestManager()
	store.Put([]byte("a"), []byte("orig"), 1)

	tx := mgr.Begin(ReadUncommitted)
	require.NoError(t, tx.Put([]byte("a"), []byte("dirty")))

	value, found := store.Get([]byte("a"), 0)
	require.True(t, found)
	require.Equal(t, "dirty", string(value))

	require.NoError(t, tx.Rollback())

	value, found = store.Get([]byte("a"), 0)
	require.True(t, found)
	require.Equal(t, "orig", string(value))
}

func TestReadUncommittedRollbackOfNewKeyRemoves(t *testing.T) {
	mgr, store, _, _ := newTestManager()
	tx := mgr.Begin(ReadUncommitted)
	require.NoError(t, tx.Put([]byte("new"), []byte("v")))
	require.NoError(t, tx.Rollback())

	_, found := store.Get([]byte("new"), 0)
	require.False(t, found)
}

func TestRepeatableReadAbortsOnWriteSetConflict(t *testing.T) {
	mgr, store, _, _ := newTestManager()
	tx := mgr.Begin(RepeatableRead)
	require.NoError(t, tx.Put([]byte("a"), []byte("mine")))

	// Simulate a concurrent committed transaction with a higher tid.
	store.Put([]byte("a"), []byte("theirs"), tx.ID()+100)

	err := tx.Commit()
	require.ErrorIs(t, err, ErrTxConflict)
	require.Equal(t, StateAborted, tx.State())
}

func TestRepeatableReadAbortsOnReadSetConflict(t *testing.T) {
	mgr, store, _, _ := newTestManager()
	store.Put([]byte("r"), []byte("v1"), 1)

	tx := mgr.Begin(RepeatableRead)
	_, _, err := tx.Get([]byte("r"))
	require.NoError(t, err)

	store.Put([]byte("r"), []byte("v2"), tx.ID()+100)
	require.NoError(t, tx.Put([]byte("other"), []byte("x")))

	err = tx.Commit()
	require.ErrorIs(t, err, ErrTxConflict)
}

func TestSerializableChecksSSTConflicts(t *testing.T) {
	mgr, _, _, sst := newTestManager()
	tx := mgr.Begin(Serializable)
	require.NoError(t, tx.Put([]byte("a"), []byte("v")))

	sst.maxFlushedTid = tx.ID() + 1
	sst.tids["a"] = tx.ID() + 1

	err := tx.Commit()
	require.ErrorIs(t, err, ErrTxConflict)
}

func TestCommitAppliesWriteSetAndBoundaryMarker(t *testing.T) {
	mgr, store, wlog, _ := newTestManager()
	tx := mgr.Begin(ReadCommitted)
	require.NoError(t, tx.Put([]byte("a"), []byte("1")))
	require.NoError(t, tx.Delete([]byte("b")))
	require.NoError(t, tx.Commit())

	value, found := store.Get([]byte("a"), 0)
	require.True(t, found)
	require.Equal(t, "1", string(value))

	_, found = store.Get([]byte("b"), 0)
	require.False(t, found)

	require.Contains(t, wlog.records, "commit")
}

func TestCommitWithTestFailSkipsMemtableApply(t *testing.T) {
	mgr, store, wlog, _ := newTestManager()
	tx := mgr.Begin(ReadCommitted)
	tx.TestFail = true
	require.NoError(t, tx.Put([]byte("a"), []byte("1")))
	require.NoError(t, tx.Commit())

	_, found := store.Get([]byte("a"), 0)
	require.False(t, found, "memtable apply must be skipped under TestFail")
	require.Contains(t, wlog.records, "commit")
	require.Equal(t, StateCommitted, tx.State())
}

func TestDoubleCommitFails(t *testing.T) {
	mgr, _, _, _ := newTestManager()
	tx := mgr.Begin(ReadCommitted)
	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.Commit(), ErrTxCommitted)
}

func TestOperationAfterRollbackFails(t *testing.T) {
	mgr, _, _, _ := newTestManager()
	tx := mgr.Begin(ReadCommitted)
	require.NoError(t, tx.Rollback())
	_, _, err := tx.Get([]byte("a"))
	require.ErrorIs(t, err, ErrTxAborted)
}

func TestManagerAllocatesMonotonicTids(t *testing.T) {
	mgr, _, _, _ := newTestManager()
	a := mgr.Begin(ReadCommitted)
	b := mgr.Begin(ReadCommitted)
	require.Less(t, a.ID(), b.ID())
}

func TestManagerForgetRemovesFromRegistry(t *testing.T) {
	mgr, _, _, _ := newTestManager()
	tx := mgr.Begin(ReadCommitted)
	_, ok := mgr.Lookup(tx.ID())
	require.True(t, ok)

	mgr.Forget(tx.ID())
	_, ok = mgr.Lookup(tx.ID())
	require.False(t, ok)
}
