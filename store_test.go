package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileLayout_TilePath(t *testing.T) {
	layout := NewTileLayout(filepath.Join("out", "tiles"), PNG)
	assert.Equal(t, filepath.Join("out", "tiles", "3", "5", "7.png"), layout.TilePath(maptile.New(5, 7, 3)))
	assert.Equal(t, filepath.Join("out", "tiles", "canvas_2.png"), layout.CanvasPath(2))

	// no trailing separator needed on the root
	layout = NewTileLayout("out", JPG)
	assert.Equal(t, filepath.Join("out", "0", "0", "0.jpg"), layout.TilePath(maptile.New(0, 0, 0)))
}

func TestFileStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(FILES, dir, PNG)
	require.NoError(t, err)
	defer store.Close()

	tile := maptile.New(1, 2, 2)
	require.NoError(t, store.PutTile(Tile{T: tile, C: []byte("first")}))
	require.NoError(t, store.PutTile(Tile{T: tile, C: []byte("second")}))

	data, err := os.ReadFile(filepath.Join(dir, "2", "1", "2.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	data, err = store.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = store.GetTile(maptile.New(0, 0, 0))
	assert.Equal(t, ErrTileNotFound, err)

	require.NoError(t, store.SetMetadata(map[string]string{"format": PNG}))
	assert.FileExists(t, filepath.Join(dir, "metadata.json"))
}

func TestFileStore_ConcurrentDirectoryCreation(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), PNG)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for y := uint32(0); y < 16; y++ {
		wg.Add(1)
		go func(y uint32) {
			defer wg.Done()
			assert.NoError(t, store.PutTile(Tile{T: maptile.New(3, y, 4), C: []byte{byte(y)}}))
		}(y)
	}
	wg.Wait()

	for y := uint32(0); y < 16; y++ {
		data, err := store.GetTile(maptile.New(3, y, 4))
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(y)}, data)
	}
}

func TestFileStore_WriteFailureIsIOError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, PNG)
	require.NoError(t, err)

	// a regular file where the zoom directory should go
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1"), []byte("x"), 0644))

	err = store.PutTile(Tile{T: maptile.New(0, 0, 1), C: []byte("tile")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
}

func TestMBTilesStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(MBTILES, dir, PNG)
	require.NoError(t, err)
	mb := store.(*MBTilesStore)
	assert.Equal(t, filepath.Join(dir, "tiles.mbtiles"), mb.Path)

	tile := maptile.New(1, 0, 2)
	require.NoError(t, store.PutTile(Tile{T: tile, C: []byte("a")}))
	require.NoError(t, store.PutTile(Tile{T: tile, C: []byte("b")}))

	data, err := store.GetTile(tile)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)

	// rows are stored flipped (TMS)
	var row int
	require.NoError(t, mb.db.Get(&row, "SELECT tile_row FROM tiles WHERE zoom_level = 2 AND tile_column = 1"))
	assert.Equal(t, 3, row)

	_, err = store.GetTile(maptile.New(0, 0, 2))
	assert.Equal(t, ErrTileNotFound, err)

	require.NoError(t, store.SetMetadata(map[string]string{"format": PNG, "maxzoom": "2"}))
	require.NoError(t, store.SetMetadata(map[string]string{"maxzoom": "3"}))
	meta, err := mb.Metadata()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"format": PNG, "maxzoom": "3"}, meta)

	require.NoError(t, store.Close())
}

func TestTMSRow(t *testing.T) {
	assert.Equal(t, uint32(0), tmsRow(maptile.New(0, 0, 0)))
	assert.Equal(t, uint32(7), tmsRow(maptile.New(0, 0, 3)))
	assert.Equal(t, uint32(0), tmsRow(maptile.New(0, 7, 3)))
}

func TestOpenStore_Unknown(t *testing.T) {
	_, err := OpenStore("s3", t.TempDir(), PNG)
	assert.Error(t, err)
}
