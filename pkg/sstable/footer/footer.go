// Package footer encodes and decodes the fixed-size trailer every SST
// carries, per spec §3: reading backward from EOF, u64 max_tid, u64
// min_tid, u32 bloom_offset, u32 meta_offset.
package footer

import (
	"encoding/binary"
	"fmt"
)

// Size is the footer's fixed encoded size in bytes.
const Size = 8 + 8 + 4 + 4

// Footer is an SST's trailer.
type Footer struct {
	MaxTid      uint64
	MinTid      uint64
	BloomOffset uint32
	MetaOffset  uint32
}

// Encode serializes the footer to its fixed-size representation.
func (f *Footer) Encode() []byte {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint64(buf[0:8], f.MaxTid)
	binary.LittleEndian.PutUint64(buf[8:16], f.MinTid)
	binary.LittleEndian.PutUint32(buf[16:20], f.BloomOffset)
	binary.LittleEndian.PutUint32(buf[20:24], f.MetaOffset)
	return buf
}

// Decode parses a footer from its fixed-size trailing bytes.
func Decode(data []byte) (*Footer, error) {
	if len(data) < Size {
		return nil, fmt.Errorf("footer: data too small: %d bytes, want %d", len(data), Size)
	}
	return &Footer{
		MaxTid:      binary.LittleEndian.Uint64(data[0:8]),
		MinTid:      binary.LittleEndian.Uint64(data[8:16]),
		BloomOffset: binary.LittleEndian.Uint32(data[16:20]),
		MetaOffset:  binary.LittleEndian.Uint32(data[20:24]),
	}, nil
}
