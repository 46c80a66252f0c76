// Package sstable implements the on-disk sorted string table format of
// spec §3/§4.6: blocks, a block-meta region, an optional bloom region,
// and a trailing footer.
package sstable

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/lsmtree/lsmtree/pkg/cache"
	"github.com/lsmtree/lsmtree/pkg/sstable/bloom"
)

// SST is an in-memory descriptor for one sorted string table file: the
// cached meta list, key range, tid range, id, level, open file handle,
// bloom filter, and the shared block cache.
type SST struct {
	id    uint64
	level int
	path  string
	file  *os.File

	metas      []blockMeta
	metaOffset uint32

	firstKey, lastKey []byte
	minTid, maxTid    uint64

	bloom *bloom.Filter
	cache *cache.Cache
}

func (s *SST) ID() uint64       { return s.id }
func (s *SST) Level() int       { return s.level }
func (s *SST) Path() string     { return s.path }
func (s *SST) FirstKey() []byte { return s.firstKey }
func (s *SST) LastKey() []byte  { return s.lastKey }
func (s *SST) MinTid() uint64   { return s.minTid }
func (s *SST) MaxTid() uint64   { return s.maxTid }
func (s *SST) BlockCount() int  { return len(s.metas) }

// Close releases the underlying file handle.
func (s *SST) Close() error { return s.file.Close() }

var fileNamePattern = regexp.MustCompile(`^sst_(\d{32})\.(\d+)$`)

// FileName encodes id and level per spec §3: sst_<32-digit-id>.<level>.
func FileName(id uint64, level int) string {
	return fmt.Sprintf("sst_%032d.%d", id, level)
}

// ParseFileName decodes a filename produced by FileName.
func ParseFileName(name string) (id uint64, level int, ok bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	level, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return id, level, true
}
