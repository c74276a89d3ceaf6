package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/imgdedup"
	"github.com/hupe1980/imgdedup/internal/config"
	"github.com/hupe1980/imgdedup/testutil"
)

func TestNewContext_LocalStore(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()
	cfg.Storage.Compression = "lz4"
	cfg.Log.Level = "error"
	cfg.Defaults.Collection = "cli"
	cfg.Defaults.HashSize = 8

	c, err := newContext(t.Context(), cfg)
	require.NoError(t, err)
	defer c.Close()

	img := testutil.EncodePNG(testutil.GradientImage(64, 64, 0))
	add, err := c.Service.Add(t.Context(), imgdedup.Upload{Filename: "a.png", Data: img})
	require.NoError(t, err)
	assert.Equal(t, 64, add.BitWidth)

	res, err := c.Service.Check(t.Context(), imgdedup.Upload{Filename: "b.png", Data: img}, 0)
	require.NoError(t, err)
	assert.True(t, res.Duplicated)

	keys, err := c.Store.List(t.Context())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "cli", keys[0].Name)
	assert.Equal(t, 64, keys[0].BitWidth)
}

func TestNewContext_MemoryStore(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "memory"

	c, err := newContext(t.Context(), cfg)
	require.NoError(t, err)
	defer c.Close()

	st, err := c.Service.Stats(t.Context(), "", 256)
	require.NoError(t, err)
	assert.False(t, st.Exists)
}

func TestNewContext_UnknownBackends(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "tape"
	_, err := newContext(t.Context(), cfg)
	assert.ErrorContains(t, err, "unknown storage backend")

	cfg = config.Default()
	cfg.Storage.Backend = "memory"
	cfg.Lock.Backend = "zookeeper"
	_, err = newContext(t.Context(), cfg)
	assert.ErrorContains(t, err, "unknown lock backend")
}

func TestReadUpload(t *testing.T) {
	_, err := readUpload(t.TempDir() + "/missing.png")
	assert.Error(t, err)
}
