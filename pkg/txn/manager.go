package txn

import (
	"sync"
	"sync/atomic"

	"github.com/lsmtree/lsmtree/internal/log"
)

// Manager owns process-wide tid allocation and the commit-time conflict
// check's serialization point (the "transaction manager mutex" of spec
// §5's lock hierarchy).
type Manager struct {
	store  Store
	log    Log
	sst    SSTChecker
	logger log.Logger

	nextTid atomic.Uint64

	mu       sync.Mutex // guards registration at begin_tran
	commitMu sync.Mutex // serializes the commit validate-then-apply sequence
	active   map[uint64]*Txn
}

// NewManager wires a transaction manager against the live store, WAL,
// and SST conflict checker.
func NewManager(store Store, walLog Log, sst SSTChecker, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.New()
	}
	m := &Manager{
		store:  store,
		log:    walLog,
		sst:    sst,
		logger: logger.WithField("component", "txn"),
		active: make(map[uint64]*Txn),
	}
	m.nextTid.Store(0)
	return m
}

// Begin atomically claims the next tid and registers a fresh context
// under the internal mutex, per spec §4.11.
func (m *Manager) Begin(level IsolationLevel) *Txn {
	m.mu.Lock()
	defer m.mu.Unlock()

	tid := m.nextTid.Add(1)
	tx := &Txn{
		mgr:      m,
		id:       tid,
		level:    level,
		writeSet: make(map[string]writeOp),
		readSet:  make(map[string]struct{}),
		rollback: make(map[string]rollbackImage),
	}
	m.active[tid] = tx
	return tx
}

// Forget removes a completed transaction from the registry. Callers
// invoke it after Commit/Rollback returns; it is a no-op if tid is
// unknown.
func (m *Manager) Forget(tid uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, tid)
}

// Lookup returns the registered transaction for tid, if any is active.
func (m *Manager) Lookup(tid uint64) (*Txn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.active[tid]
	return tx, ok
}

// NextTidHint returns the tid that would be assigned to the next Begin,
// without claiming it — used to seed a WAL checkpoint's next_tid field.
func (m *Manager) NextTidHint() uint64 {
	return m.nextTid.Load() + 1
}

// SeedNextTid advances the allocator so the next Begin is assigned at
// least a recovered checkpoint's next_tid, so ids claimed before a
// restart are never reissued.
func (m *Manager) SeedNextTid(next uint64) {
	for {
		cur := m.nextTid.Load()
		if next-1 <= cur {
			return
		}
		if m.nextTid.CompareAndSwap(cur, next-1) {
			return
		}
	}
}
