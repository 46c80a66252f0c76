package block

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Builder accumulates entries in arrival order and tracks the byte size
// the encoded block would occupy, per spec §4.3.
type Builder struct {
	targetSize int
	entries    []Entry
	dataSize   int
}

// NewBuilder creates a block builder targeting targetSize bytes; a
// non-positive value falls back to DefaultTargetSize.
func NewBuilder(targetSize int) *Builder {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return &Builder{targetSize: targetSize}
}

func entryWireSize(key, value []byte) int {
	return 2 + len(key) + 8 + 2 + len(value)
}

// Add appends (key, value, tid) unless doing so would exceed the block's
// target size; force appends unconditionally, which the SST builder uses
// when the incoming key equals the previous entry's key, keeping every
// version of a key inside one block.
func (b *Builder) Add(key, value []byte, tid uint64, force bool) bool {
	size := entryWireSize(key, value)
	if !force && len(b.entries) > 0 && b.EstimatedSize()+size+offsetEntrySize > b.targetSize {
		return false
	}
	b.entries = append(b.entries, Entry{
		Key:   append([]byte(nil), key...),
		Value: append([]byte(nil), value...),
		Tid:   tid,
	})
	b.dataSize += size
	return true
}

// Entries returns the number of entries accumulated so far.
func (b *Builder) Entries() int { return len(b.entries) }

// Empty reports whether the builder holds no entries.
func (b *Builder) Empty() bool { return len(b.entries) == 0 }

// EstimatedSize returns the byte size the block would occupy if finished
// right now: entry area + offset table + count + checksum.
func (b *Builder) EstimatedSize() int {
	return b.dataSize + len(b.entries)*offsetEntrySize + countSize + checksumSize
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.entries = b.entries[:0]
	b.dataSize = 0
}

// Finish serializes the block per spec §3: entries, an offset table, a
// u16 entry count, and a trailing u32 CRC over everything preceding it.
// A block is never empty when encoded.
func (b *Builder) Finish() ([]byte, error) {
	if len(b.entries) == 0 {
		return nil, fmt.Errorf("block: cannot finish an empty block")
	}

	buf := make([]byte, 0, b.EstimatedSize())
	offsets := make([]uint16, len(b.entries))
	var tmp [8]byte

	for i, e := range b.entries {
		offsets[i] = uint16(len(buf))

		binary.LittleEndian.PutUint16(tmp[:2], uint16(len(e.Key)))
		buf = append(buf, tmp[:2]...)
		buf = append(buf, e.Key...)

		binary.LittleEndian.PutUint64(tmp[:8], e.Tid)
		buf = append(buf, tmp[:8]...)

		binary.LittleEndian.PutUint16(tmp[:2], uint16(len(e.Value)))
		buf = append(buf, tmp[:2]...)
		buf = append(buf, e.Value...)
	}

	for _, off := range offsets {
		binary.LittleEndian.PutUint16(tmp[:2], off)
		buf = append(buf, tmp[:2]...)
	}

	binary.LittleEndian.PutUint16(tmp[:2], uint16(len(b.entries)))
	buf = append(buf, tmp[:2]...)

	sum := crc32.ChecksumIEEE(buf)
	binary.LittleEndian.PutUint32(tmp[:4], sum)
	buf = append(buf, tmp[:4]...)

	return buf, nil
}
