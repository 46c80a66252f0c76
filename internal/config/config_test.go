package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig(t.TempDir())
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewDefaultConfig(t.TempDir())
	cfg.LevelRatio = 1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig(dir)
	cfg.PerMemTableLimit = 123456

	require.NoError(t, cfg.SaveManifest(dir))

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, cfg.PerMemTableLimit, loaded.PerMemTableLimit)
	require.Equal(t, filepath.Join(dir, "wal"), loaded.WALDir)
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	require.ErrorIs(t, err, ErrManifestNotFound)
}
