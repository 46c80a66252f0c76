package block

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Reader provides random access into a decoded block's entries.
type Reader struct {
	data    []byte
	offsets []uint16
}

// NewReader decodes a block's footer (offset table, count, checksum) and
// validates the trailing CRC; a mismatch is a hard error per spec §4.3.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < countSize+checksumSize {
		return nil, fmt.Errorf("block: data too small: %d bytes", len(data))
	}

	body := data[:len(data)-checksumSize]
	wantSum := binary.LittleEndian.Uint32(data[len(data)-checksumSize:])
	if gotSum := crc32.ChecksumIEEE(body); gotSum != wantSum {
		return nil, fmt.Errorf("block: checksum mismatch: got %d want %d", gotSum, wantSum)
	}

	countOffset := len(body) - countSize
	count := binary.LittleEndian.Uint16(body[countOffset:])

	offsetsStart := countOffset - int(count)*offsetEntrySize
	if offsetsStart < 0 {
		return nil, fmt.Errorf("block: invalid entry count %d", count)
	}

	offsets := make([]uint16, count)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint16(body[offsetsStart+i*offsetEntrySize:])
	}

	return &Reader{data: body[:offsetsStart], offsets: offsets}, nil
}

// Size returns the entry count.
func (r *Reader) Size() int { return len(r.offsets) }

func (r *Reader) entryAt(i int) (key, value []byte, tid uint64) {
	buf := r.data[r.offsets[i]:]
	keyLen := binary.LittleEndian.Uint16(buf)
	buf = buf[2:]
	key = buf[:keyLen]
	buf = buf[keyLen:]
	tid = binary.LittleEndian.Uint64(buf)
	buf = buf[8:]
	valLen := binary.LittleEndian.Uint16(buf)
	buf = buf[2:]
	value = buf[:valLen]
	return key, value, tid
}

func (r *Reader) KeyAt(i int) []byte   { k, _, _ := r.entryAt(i); return k }
func (r *Reader) ValueAt(i int) []byte { _, v, _ := r.entryAt(i); return v }
func (r *Reader) TidAt(i int) uint64   { _, _, t := r.entryAt(i); return t }

// FindIndexByBinarySearch locates the first index whose entry satisfies
// key_at == key and tid_at <= viewTid (viewTid == 0 means the newest
// version), binary-searching the ascending-key offset table for the run's
// first occurrence and falling back to a linear scan within that run.
func (r *Reader) FindIndexByBinarySearch(key []byte, viewTid uint64) (int, bool) {
	lo, hi := 0, len(r.offsets)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(r.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(r.offsets) || !bytes.Equal(r.KeyAt(lo), key) {
		return 0, false
	}
	for i := lo; i < len(r.offsets) && bytes.Equal(r.KeyAt(i), key); i++ {
		if viewTid == 0 || r.TidAt(i) <= viewTid {
			return i, true
		}
	}
	return 0, false
}
