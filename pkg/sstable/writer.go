package sstable

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lsmtree/lsmtree/pkg/cache"
	"github.com/lsmtree/lsmtree/pkg/sstable/block"
	"github.com/lsmtree/lsmtree/pkg/sstable/bloom"
	"github.com/lsmtree/lsmtree/pkg/sstable/footer"
)

// Builder streams entries into a new SST, per spec §4.6: it maintains
// the current block via a block.Builder, finalizing and starting a new
// one whenever a block fills, and enforces the same-key-same-block rule
// by forcing the next block.Builder.Add when the incoming key repeats
// the previous one.
type Builder struct {
	id    uint64
	level int

	file    *os.File
	tmpPath string
	path    string
	offset  uint32

	blockBuilder                *block.Builder
	blockFirstKey, blockLastKey []byte

	metas []blockMeta

	firstKey, lastKey []byte
	prevKey           []byte
	minTid, maxTid    uint64
	hasEntries        bool

	bloom *bloom.Filter
}

// NewBuilder creates a builder that will atomically materialize the SST
// at path once Build is called (write to a temp file, then rename).
func NewBuilder(id uint64, level int, path string, blockSize int, bloomExpectedEntries uint64, bloomFPRate float64) (*Builder, error) {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp", filepath.Base(path)))

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("sstable: create temp file: %w", err)
	}

	return &Builder{
		id:           id,
		level:        level,
		file:         f,
		tmpPath:      tmpPath,
		path:         path,
		blockBuilder: block.NewBuilder(blockSize),
		bloom:        bloom.New(bloomExpectedEntries, bloomFPRate),
	}, nil
}

// Add streams one entry; keys must arrive in ascending order (equal keys
// allowed, by descending tid), matching the whole tree's ordering
// invariant.
func (b *Builder) Add(key, value []byte, tid uint64) error {
	force := b.prevKey != nil && bytes.Equal(key, b.prevKey)
	if !b.blockBuilder.Add(key, value, tid, force) {
		if err := b.finishBlock(); err != nil {
			return err
		}
		if !b.blockBuilder.Add(key, value, tid, false) {
			return fmt.Errorf("sstable: entry for key %q does not fit in an empty block", key)
		}
	}

	if b.blockFirstKey == nil {
		b.blockFirstKey = append([]byte(nil), key...)
	}
	b.blockLastKey = append([]byte(nil), key...)

	b.bloom.Add(key)

	if !b.hasEntries || tid < b.minTid {
		b.minTid = tid
	}
	if !b.hasEntries || tid > b.maxTid {
		b.maxTid = tid
	}
	if b.firstKey == nil {
		b.firstKey = append([]byte(nil), key...)
	}
	b.lastKey = append([]byte(nil), key...)
	b.prevKey = append([]byte(nil), key...)
	b.hasEntries = true
	return nil
}

func (b *Builder) finishBlock() error {
	if b.blockBuilder.Empty() {
		return nil
	}
	data, err := b.blockBuilder.Finish()
	if err != nil {
		return fmt.Errorf("sstable: finish block: %w", err)
	}
	n, err := b.file.Write(data)
	if err != nil {
		return fmt.Errorf("sstable: write block: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("sstable: wrote incomplete block: %d of %d bytes", n, len(data))
	}

	b.metas = append(b.metas, blockMeta{
		Offset:   b.offset,
		FirstKey: b.blockFirstKey,
		LastKey:  b.blockLastKey,
	})
	b.offset += uint32(len(data))

	b.blockBuilder.Reset()
	b.blockFirstKey = nil
	b.blockLastKey = nil
	return nil
}

// Build finalizes the current block, serializes the block-meta region,
// appends the bloom region and footer, writes the file atomically
// (temp file then sync then rename), and returns an in-memory
// descriptor wired to blockCache.
func (b *Builder) Build(blockCache *cache.Cache) (*SST, error) {
	if err := b.finishBlock(); err != nil {
		return nil, err
	}
	if len(b.metas) == 0 {
		b.file.Close()
		os.Remove(b.tmpPath)
		return nil, fmt.Errorf("sstable: cannot build an empty SST")
	}

	metaOffset := b.offset
	metaData := encodeBlockMeta(b.metas)
	if _, err := b.file.Write(metaData); err != nil {
		return nil, fmt.Errorf("sstable: write block-meta: %w", err)
	}
	b.offset += uint32(len(metaData))

	bloomOffset := b.offset
	bloomData := b.bloom.Encode()
	if _, err := b.file.Write(bloomData); err != nil {
		return nil, fmt.Errorf("sstable: write bloom: %w", err)
	}
	b.offset += uint32(len(bloomData))

	ft := &footer.Footer{
		MaxTid:      b.maxTid,
		MinTid:      b.minTid,
		BloomOffset: bloomOffset,
		MetaOffset:  metaOffset,
	}
	if _, err := b.file.Write(ft.Encode()); err != nil {
		return nil, fmt.Errorf("sstable: write footer: %w", err)
	}

	if err := b.file.Sync(); err != nil {
		return nil, fmt.Errorf("sstable: sync: %w", err)
	}
	if err := b.file.Close(); err != nil {
		return nil, fmt.Errorf("sstable: close: %w", err)
	}
	if err := os.Rename(b.tmpPath, b.path); err != nil {
		return nil, fmt.Errorf("sstable: rename into place: %w", err)
	}

	f, err := os.Open(b.path)
	if err != nil {
		return nil, fmt.Errorf("sstable: reopen %s: %w", b.path, err)
	}

	return &SST{
		id:         b.id,
		level:      b.level,
		path:       b.path,
		file:       f,
		metas:      b.metas,
		metaOffset: metaOffset,
		firstKey:   b.firstKey,
		lastKey:    b.lastKey,
		minTid:     b.minTid,
		maxTid:     b.maxTid,
		bloom:      b.bloom,
		cache:      blockCache,
	}, nil
}

// Abort discards the in-progress temp file.
func (b *Builder) Abort() error {
	b.file.Close()
	return os.Remove(b.tmpPath)
}
