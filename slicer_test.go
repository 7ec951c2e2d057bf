package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	tiles map[maptile.Tile][]byte
	order []maptile.Tile
	meta  map[string]string
	fail  error
	puts  int
}

func newMemStore() *memStore {
	return &memStore{tiles: make(map[maptile.Tile][]byte)}
}

func (s *memStore) PutTile(tile Tile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.fail != nil {
		return s.fail
	}
	s.tiles[tile.T] = append([]byte(nil), tile.C...)
	s.order = append(s.order, tile.T)
	return nil
}

func (s *memStore) GetTile(t maptile.Tile) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.tiles[t]
	if !ok {
		return nil, ErrTileNotFound
	}
	return data, nil
}

func (s *memStore) SetMetadata(meta map[string]string) error {
	s.meta = meta
	return nil
}

func (s *memStore) Close() error { return nil }

type countingProgress struct {
	mu     sync.Mutex
	totals map[maptile.Zoom]int64
	done   int
	closed []maptile.Zoom
}

func (p *countingProgress) LevelStarted(z maptile.Zoom, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.totals == nil {
		p.totals = make(map[maptile.Zoom]int64)
	}
	p.totals[z] = total
}

func (p *countingProgress) TileDone(maptile.Tile) {
	p.mu.Lock()
	p.done++
	p.mu.Unlock()
}

func (p *countingProgress) LevelFinished(z maptile.Zoom) {
	p.mu.Lock()
	p.closed = append(p.closed, z)
	p.mu.Unlock()
}

func newTestSlicer(store TileStore, tileSize, workers int) *Slicer {
	return &Slicer{
		TileSize: tileSize,
		Encoder:  &PalettePNGEncoder{MaxColors: MaxPaletteColors},
		Store:    store,
		Workers:  workers,
	}
}

func TestLevelTiles_RowMajor(t *testing.T) {
	tiles := LevelTiles(64, 64, 32, 1)
	assert.Equal(t, []maptile.Tile{
		maptile.New(0, 0, 1), maptile.New(1, 0, 1),
		maptile.New(0, 1, 1), maptile.New(1, 1, 1),
	}, tiles)
}

func TestSlice_SequentialWritesRowMajor(t *testing.T) {
	store := newMemStore()
	progress := &countingProgress{}
	s := newTestSlicer(store, 16, 1)
	s.Progress = progress

	canvas := blockImage(64, 64, 16)
	require.NoError(t, s.Slice(context.Background(), canvas, 2))

	assert.Equal(t, LevelTiles(64, 64, 16, 2), store.order)
	assert.Len(t, store.tiles, 16)
	assert.Equal(t, int64(16), progress.totals[2])
	assert.Equal(t, 16, progress.done)
	assert.Equal(t, []maptile.Zoom{2}, progress.closed)
}

func TestSlice_ReassembledTilesReproduceCanvas(t *testing.T) {
	store := newMemStore()
	s := newTestSlicer(store, 32, 4)

	canvas := blockImage(128, 128, 8)
	require.NoError(t, s.Slice(context.Background(), canvas, 2))
	require.Len(t, store.tiles, 16)

	out := image.NewNRGBA(canvas.Bounds())
	for tile, data := range store.tiles {
		assert.True(t, tile.Valid())
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		require.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())

		r := TileRect(tile, 32)
		for y := 0; y < 32; y++ {
			for x := 0; x < 32; x++ {
				out.SetNRGBA(r.Min.X+x, r.Min.Y+y, color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA))
			}
		}
	}
	assert.Equal(t, canvas.Pix, out.Pix)
}

func TestSlice_WriteFailureAbortsLevel(t *testing.T) {
	store := newMemStore()
	store.fail = wrapError(IOError, errors.New("disk full"), "write tile")
	s := newTestSlicer(store, 16, 1)

	err := s.Slice(context.Background(), blockImage(64, 64, 16), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, 1, store.puts)
}

func TestSlice_WriteFailureWithWorkers(t *testing.T) {
	store := newMemStore()
	store.fail = wrapError(IOError, errors.New("read-only"), "write tile")
	s := newTestSlicer(store, 8, 4)

	err := s.Slice(context.Background(), blockImage(256, 256, 8), 5)
	require.Error(t, err)
	assert.Equal(t, IOError, KindOf(err))
	assert.Less(t, store.puts, 32*32)
}

func TestSlice_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore()
	s := newTestSlicer(store, 16, 2)
	err := s.Slice(ctx, blockImage(64, 64, 16), 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.tiles)
}

func TestSlice_RecordsManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManifest(dir, 4)
	require.NoError(t, err)

	s := newTestSlicer(newMemStore(), 16, 3)
	s.Manifest = m
	require.NoError(t, s.Slice(context.Background(), blockImage(32, 32, 16), 1))
	written, err := m.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(4), written)
}
