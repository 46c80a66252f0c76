package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Checkpoint is the recovery sidecar of spec §4.10/§6: the next tid to
// allocate, and the set of tids that have committed but not yet been
// reflected in a flushed SST.
type Checkpoint struct {
	NextTid            uint64
	CommittedUnflushed []uint64
}

// Encode serializes the checkpoint per spec §6: u64 next_tid ∥ u64 count
// ∥ count × u64 committed-unflushed-tid.
func (c *Checkpoint) Encode() []byte {
	buf := make([]byte, 16+8*len(c.CommittedUnflushed))
	binary.LittleEndian.PutUint64(buf[0:8], c.NextTid)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(c.CommittedUnflushed)))
	for i, tid := range c.CommittedUnflushed {
		binary.LittleEndian.PutUint64(buf[16+8*i:24+8*i], tid)
	}
	return buf
}

// DecodeCheckpoint parses the fixed binary layout written by Encode.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("wal: truncated checkpoint header")
	}
	c := &Checkpoint{NextTid: binary.LittleEndian.Uint64(data[0:8])}
	count := binary.LittleEndian.Uint64(data[8:16])
	want := 16 + 8*int(count)
	if len(data) != want {
		return nil, fmt.Errorf("wal: checkpoint length mismatch: want %d, got %d", want, len(data))
	}
	c.CommittedUnflushed = make([]uint64, count)
	for i := range c.CommittedUnflushed {
		c.CommittedUnflushed[i] = binary.LittleEndian.Uint64(data[16+8*i : 24+8*i])
	}
	return c, nil
}

// LoadCheckpoint reads the checkpoint sidecar at path. A missing file is
// not an error: the caller gets a fresh checkpoint starting tid allocation
// at 1.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Checkpoint{NextTid: 1}, nil
		}
		return nil, fmt.Errorf("wal: failed to read checkpoint: %w", err)
	}
	return DecodeCheckpoint(data)
}

// Save persists the checkpoint to path via temp-file-then-rename, matching
// the atomic-write discipline used for SST and manifest files.
func (c *Checkpoint) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("wal: failed to create checkpoint directory: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("wal: failed to create checkpoint temp file: %w", err)
	}
	if _, err := f.Write(c.Encode()); err != nil {
		f.Close()
		return fmt.Errorf("wal: failed to write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("wal: failed to sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("wal: failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("wal: failed to rename checkpoint: %w", err)
	}
	return nil
}
