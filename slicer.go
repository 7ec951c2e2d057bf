package main

import (
	"bytes"
	"context"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb/maptile"
)

// Slicer cuts a level canvas into tiles and writes them to a store.
type Slicer struct {
	TileSize int
	Encoder  TileEncoder
	Store    TileStore
	Progress ProgressSink
	Manifest *Manifest
	Workers  int
}

// TileRect 瓦片在画布上的像素范围
func TileRect(t maptile.Tile, tileSize int) image.Rectangle {
	x, y := int(t.X)*tileSize, int(t.Y)*tileSize
	return image.Rect(x, y, x+tileSize, y+tileSize)
}

// LevelTiles lists the tiles of a canvas in row-major order (y outer, x inner).
func LevelTiles(canvasW, canvasH, tileSize int, z maptile.Zoom) []maptile.Tile {
	numX := canvasW / tileSize
	numY := canvasH / tileSize
	tiles := make([]maptile.Tile, 0, numX*numY)
	for y := 0; y < numY; y++ {
		for x := 0; x < numX; x++ {
			tiles = append(tiles, maptile.New(uint32(x), uint32(y), z))
		}
	}
	return tiles
}

// Slice 切分一层画布. 任一瓦片失败即中止该层剩余瓦片
func (s *Slicer) Slice(ctx context.Context, canvas *image.NRGBA, z maptile.Zoom) error {
	b := canvas.Bounds()
	numX := b.Dx() / s.TileSize
	progress := s.progress()
	// 画布为正方形, 总数按 numX*numX 计
	progress.LevelStarted(z, int64(numX*numX))
	defer progress.LevelFinished(z)

	levelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		tileWG   sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	workers := make(chan struct{}, s.workerCount())
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

tiles:
	for _, t := range LevelTiles(b.Dx(), b.Dy(), s.TileSize, z) {
		select {
		case workers <- struct{}{}:
		case <-levelCtx.Done():
			break tiles
		}
		tileWG.Add(1)
		go func(t maptile.Tile) {
			//workers完成并清退
			defer func() {
				tileWG.Done()
				<-workers
			}()
			if levelCtx.Err() != nil {
				return
			}
			if err := s.cutTile(canvas, t); err != nil {
				fail(err)
				return
			}
			if s.Manifest != nil {
				s.Manifest.SetSuccessed(t)
			}
			progress.TileDone(t)
		}(t)
	}
	//等待该层结束
	tileWG.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (s *Slicer) cutTile(canvas *image.NRGBA, t maptile.Tile) error {
	start := time.Now()
	rect := TileRect(t, s.TileSize).Add(canvas.Bounds().Min)
	img := imaging.Crop(canvas, rect)

	var buf bytes.Buffer
	if err := s.Encoder.Encode(&buf, img); err != nil {
		return wrapError(IOError, err, "encode tile %v", t)
	}
	if err := s.Store.PutTile(Tile{T: t, C: buf.Bytes()}); err != nil {
		return err
	}
	log.Debugf("tile(z:%d, x:%d, y:%d), %dms , %.2f kb", t.Z, t.X, t.Y,
		time.Since(start).Milliseconds(), float32(buf.Len())/1024.0)
	return nil
}

func (s *Slicer) workerCount() int {
	if s.Workers <= 0 {
		return 1
	}
	return s.Workers
}

func (s *Slicer) progress() ProgressSink {
	if s.Progress == nil {
		return NopProgress{}
	}
	return s.Progress
}
