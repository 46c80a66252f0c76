package sstable

import (
	"bytes"
	"fmt"
	"os"

	"github.com/lsmtree/lsmtree/pkg/cache"
	"github.com/lsmtree/lsmtree/pkg/sstable/block"
	"github.com/lsmtree/lsmtree/pkg/sstable/bloom"
	"github.com/lsmtree/lsmtree/pkg/sstable/footer"
)

// Open parses the footer backward from EOF, reads and validates the
// block-meta region, reads the bloom region if present, and populates
// the descriptor, per spec §4.6.
func Open(id uint64, level int, path string, blockCache *cache.Cache) (*SST, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sstable: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: stat %s: %w", path, err)
	}
	size := info.Size()
	if size < footer.Size {
		f.Close()
		return nil, fmt.Errorf("sstable: %s too small to hold a footer", path)
	}

	footerBuf := make([]byte, footer.Size)
	if _, err := f.ReadAt(footerBuf, size-footer.Size); err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: read footer of %s: %w", path, err)
	}
	ft, err := footer.Decode(footerBuf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: %s: %w", path, err)
	}

	footerStart := size - footer.Size
	metaData := make([]byte, int64(ft.BloomOffset)-int64(ft.MetaOffset))
	if _, err := f.ReadAt(metaData, int64(ft.MetaOffset)); err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: read block-meta of %s: %w", path, err)
	}
	metas, err := decodeBlockMeta(metaData)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sstable: %s: %w", path, err)
	}
	if len(metas) == 0 {
		f.Close()
		return nil, fmt.Errorf("sstable: %s has an empty block-meta region", path)
	}

	// bloom_offset == meta-end means no bloom exists.
	var bf *bloom.Filter
	if int64(ft.BloomOffset) < footerStart {
		bloomData := make([]byte, footerStart-int64(ft.BloomOffset))
		if _, err := f.ReadAt(bloomData, int64(ft.BloomOffset)); err != nil {
			f.Close()
			return nil, fmt.Errorf("sstable: read bloom of %s: %w", path, err)
		}
		bf, err = bloom.Decode(bloomData)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("sstable: %s: %w", path, err)
		}
	}

	return &SST{
		id:         id,
		level:      level,
		path:       path,
		file:       f,
		metas:      metas,
		metaOffset: ft.MetaOffset,
		firstKey:   metas[0].FirstKey,
		lastKey:    metas[len(metas)-1].LastKey,
		minTid:     ft.MinTid,
		maxTid:     ft.MaxTid,
		bloom:      bf,
		cache:      blockCache,
	}, nil
}

// ReadBlock returns the decoded block at index i, consulting the shared
// cache by (sst_id, block_id) before reading from disk.
func (s *SST) ReadBlock(i int) (*block.Reader, error) {
	if i < 0 || i >= len(s.metas) {
		return nil, fmt.Errorf("sstable: block index %d out of range (size %d)", i, len(s.metas))
	}

	key := cache.Key{SSTID: s.id, BlockID: i}
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(*block.Reader), nil
		}
	}

	start := int64(s.metas[i].Offset)
	var end int64
	if i+1 < len(s.metas) {
		end = int64(s.metas[i+1].Offset)
	} else {
		end = int64(s.metaOffset)
	}

	data := make([]byte, end-start)
	if _, err := s.file.ReadAt(data, start); err != nil {
		return nil, fmt.Errorf("sstable: read block %d: %w", i, err)
	}

	r, err := block.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("sstable: decode block %d: %w", i, err)
	}
	if s.cache != nil {
		s.cache.Put(key, r)
	}
	return r, nil
}

// FindBlockIdx identifies the block whose [first_key, last_key] spans
// key. When duplicate first_keys exist (legal only in level 0), the
// candidate with the largest first_key <= key wins.
func (s *SST) FindBlockIdx(key []byte) (int, bool) {
	lo, hi := 0, len(s.metas)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(s.metas[mid].FirstKey, key) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	idx := lo - 1
	if idx < 0 {
		return 0, false
	}
	if bytes.Compare(key, s.metas[idx].LastKey) > 0 {
		return 0, false
	}
	return idx, true
}

// blockForSeek returns the first block index whose last key is >= target,
// used by Seek to position across arbitrary (possibly absent) targets
// rather than a key guaranteed to fall inside some block's range.
func (s *SST) blockForSeek(target []byte) int {
	lo, hi := 0, len(s.metas)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(s.metas[mid].LastKey, target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
