package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// blockMeta describes one block's position and key range within an SST,
// per spec §3.
type blockMeta struct {
	Offset   uint32
	FirstKey []byte
	LastKey  []byte
}

// encodeBlockMeta serializes the meta list as (u32 count | for each: u32
// offset, u16 first_key_len, first_key, u16 last_key_len, last_key | u32
// hash).
func encodeBlockMeta(metas []blockMeta) []byte {
	buf := new(bytes.Buffer)
	var tmp [4]byte

	binary.LittleEndian.PutUint32(tmp[:], uint32(len(metas)))
	buf.Write(tmp[:])

	for _, m := range metas {
		binary.LittleEndian.PutUint32(tmp[:], m.Offset)
		buf.Write(tmp[:])

		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(m.FirstKey)))
		buf.Write(lenBuf[:])
		buf.Write(m.FirstKey)

		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(m.LastKey)))
		buf.Write(lenBuf[:])
		buf.Write(m.LastKey)
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	binary.LittleEndian.PutUint32(tmp[:], sum)
	buf.Write(tmp[:])

	return buf.Bytes()
}

// decodeBlockMeta parses a meta region previously produced by
// encodeBlockMeta and validates its trailing hash.
func decodeBlockMeta(data []byte) ([]blockMeta, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("sstable: block-meta region too small: %d bytes", len(data))
	}

	body := data[:len(data)-4]
	wantSum := binary.LittleEndian.Uint32(data[len(data)-4:])
	if gotSum := crc32.ChecksumIEEE(body); gotSum != wantSum {
		return nil, fmt.Errorf("sstable: block-meta checksum mismatch: got %d want %d", gotSum, wantSum)
	}

	count := binary.LittleEndian.Uint32(body[0:4])
	body = body[4:]

	metas := make([]blockMeta, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(body) < 6 {
			return nil, fmt.Errorf("sstable: truncated block-meta entry %d", i)
		}
		offset := binary.LittleEndian.Uint32(body[0:4])
		body = body[4:]

		firstLen := binary.LittleEndian.Uint16(body[0:2])
		body = body[2:]
		if uint16(len(body)) < firstLen {
			return nil, fmt.Errorf("sstable: truncated first_key in block-meta entry %d", i)
		}
		firstKey := append([]byte(nil), body[:firstLen]...)
		body = body[firstLen:]

		if len(body) < 2 {
			return nil, fmt.Errorf("sstable: truncated block-meta entry %d", i)
		}
		lastLen := binary.LittleEndian.Uint16(body[0:2])
		body = body[2:]
		if uint16(len(body)) < lastLen {
			return nil, fmt.Errorf("sstable: truncated last_key in block-meta entry %d", i)
		}
		lastKey := append([]byte(nil), body[:lastLen]...)
		body = body[lastLen:]

		metas = append(metas, blockMeta{Offset: offset, FirstKey: firstKey, LastKey: lastKey})
	}

	return metas, nil
}
