package wal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	c := &Checkpoint{NextTid: 101, CommittedUnflushed: []uint64{3, 5, 9}}
	decoded, err := DecodeCheckpoint(c.Encode())
	require.NoError(t, err)
	require.Equal(t, c, decoded)
}

func TestCheckpointEmptySet(t *testing.T) {
	c := &Checkpoint{NextTid: 1}
	decoded, err := DecodeCheckpoint(c.Encode())
	require.NoError(t, err)
	require.Equal(t, uint64(1), decoded.NextTid)
	require.Empty(t, decoded.CommittedUnflushed)
}

func TestCheckpointSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tranc_id")

	c := &Checkpoint{NextTid: 55, CommittedUnflushed: []uint64{10, 20}}
	require.NoError(t, c.Save(path))

	loaded, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.Equal(t, c, loaded)
}

func TestLoadCheckpointMissingFileReturnsFresh(t *testing.T) {
	dir := t.TempDir()
	c, err := LoadCheckpoint(filepath.Join(dir, "tranc_id"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), c.NextTid)
	require.Empty(t, c.CommittedUnflushed)
}

func TestDecodeCheckpointRejectsTruncated(t *testing.T) {
	_, err := DecodeCheckpoint([]byte{1, 2, 3})
	require.Error(t, err)
}
