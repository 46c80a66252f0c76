package wal

import (
	"fmt"
	"os"
)

// Applier receives replayed PUT/DELETE operations during recovery. A
// *memtable.MemTable satisfies this structurally.
type Applier interface {
	Put(key, value []byte, tid uint64)
	Remove(key []byte, tid uint64)
}

// group accumulates every record seen for one tid, in file order.
type group struct {
	tid     uint64
	records []Record
	lastOp  byte
}

// Recover reads every log file in dir in order, groups records by tid,
// and replays into applier the PUT/DELETE records of every committed
// group whose tid exceeds maxFlushedTid, per spec §4.10. Groups that
// never reached COMMIT, or that end in ROLLBACK, are discarded.
func Recover(dir string, maxFlushedTid uint64, applier Applier) error {
	files, err := FindLogFiles(dir)
	if err != nil {
		return err
	}

	order := make([]uint64, 0)
	groups := make(map[uint64]*group)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("wal: failed to read %s: %w", path, err)
		}
		for len(data) > 0 {
			r, n, err := DecodeRecord(data)
			if err != nil {
				return fmt.Errorf("wal: corrupt record in %s: %w", path, err)
			}
			data = data[n:]

			g, ok := groups[r.Tid]
			if !ok {
				g = &group{tid: r.Tid}
				groups[r.Tid] = g
				order = append(order, r.Tid)
			}
			g.records = append(g.records, r)
			g.lastOp = r.Op
		}
	}

	for _, tid := range order {
		g := groups[tid]
		if g.lastOp == OpRollback {
			continue
		}
		if g.lastOp != OpCommit {
			continue // CREATE with no terminal record: never finished.
		}
		if tid <= maxFlushedTid {
			continue // already reflected in a flushed SST.
		}
		for _, r := range g.records {
			switch r.Op {
			case OpPut:
				applier.Put(r.Key, r.Value, r.Tid)
			case OpDelete:
				applier.Remove(r.Key, r.Tid)
			}
		}
	}
	return nil
}
