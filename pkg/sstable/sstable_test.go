package sstable

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lsmtree/lsmtree/pkg/cache"
	"github.com/stretchr/testify/require"
)

func buildTestSST(t *testing.T, dir string, id uint64, entries int) *SST {
	t.Helper()
	path := filepath.Join(dir, FileName(id, 0))
	b, err := NewBuilder(id, 0, path, 256, uint64(entries), 0.01)
	require.NoError(t, err)

	for i := 0; i < entries; i++ {
		key := []byte(fmt.Sprintf("key%04d", i))
		value := []byte(fmt.Sprintf("value%04d", i))
		require.NoError(t, b.Add(key, value, uint64(i+1)))
	}

	sst, err := b.Build(cache.New(16, 2))
	require.NoError(t, err)
	return sst
}

func TestFileNameRoundTrip(t *testing.T) {
	name := FileName(42, 3)
	id, level, ok := ParseFileName(name)
	require.True(t, ok)
	require.Equal(t, uint64(42), id)
	require.Equal(t, 3, level)
}

func TestBuilderAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sst := buildTestSST(t, dir, 1, 200)
	defer sst.Close()

	require.Equal(t, "key0000", string(sst.FirstKey()))
	require.Equal(t, "key0199", string(sst.LastKey()))
	require.Greater(t, sst.BlockCount(), 1)

	reopened, err := Open(1, 0, sst.Path(), cache.New(16, 2))
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, sst.FirstKey(), reopened.FirstKey())
	require.Equal(t, sst.LastKey(), reopened.LastKey())
}

func TestSSTGetHitAndMiss(t *testing.T) {
	dir := t.TempDir()
	sst := buildTestSST(t, dir, 2, 100)
	defer sst.Close()

	it, err := sst.Get([]byte("key0050"), 0)
	require.NoError(t, err)
	require.True(t, it.Valid())
	require.Equal(t, "value0050", string(it.Value()))

	it, err = sst.Get([]byte("nonexistent"), 0)
	require.NoError(t, err)
	require.False(t, it.Valid())
}

func TestSSTIteratesAcrossBlockBoundaries(t *testing.T) {
	dir := t.TempDir()
	sst := buildTestSST(t, dir, 3, 300)
	defer sst.Close()

	it := sst.Begin(0)
	count := 0
	var last string
	for it.Valid() {
		key := string(it.Key())
		if last != "" {
			require.Greater(t, key, last)
		}
		last = key
		count++
		it.Next()
	}
	require.Equal(t, 300, count)
}

func TestSSTSameKeyStaysInOneBlockAcrossVersions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName(4, 0))
	b, err := NewBuilder(4, 0, path, 64, 3, 0.01)
	require.NoError(t, err)

	require.NoError(t, b.Add([]byte("k"), []byte("v3"), 30))
	require.NoError(t, b.Add([]byte("k"), []byte("v2"), 20))
	require.NoError(t, b.Add([]byte("k"), []byte("v1"), 10))

	sst, err := b.Build(cache.New(16, 2))
	require.NoError(t, err)
	defer sst.Close()

	require.Equal(t, 1, sst.BlockCount())

	it := sst.Begin(15)
	require.True(t, it.Valid())
	require.Equal(t, "v2", string(it.Value()))
}

func TestBuilderRejectsEmptyBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName(5, 0))
	b, err := NewBuilder(5, 0, path, 256, 10, 0.01)
	require.NoError(t, err)

	_, err = b.Build(cache.New(16, 2))
	require.Error(t, err)
}
