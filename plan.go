package main

import (
	"github.com/paulmach/orb/maptile"
)

// Level describes one zoom level of the pyramid.
type Level struct {
	Zoom         maptile.Zoom
	Scale        int // successive halvings applied to the source
	CanvasSize   int
	TilesPerSide int
}

// TileCount 该层瓦片数
func (l Level) TileCount() int64 {
	return int64(l.TilesPerSide) * int64(l.TilesPerSide)
}

// PyramidPlan is the zoom range and scale schedule for one source image.
type PyramidPlan struct {
	MinZoom    maptile.Zoom
	MaxZoom    maptile.Zoom
	TileSize   int
	TotalTiles int64
	Levels     []Level
}

// PlanPyramid derives the zoom levels needed to show a width x height image in
// tileSize tiles. The deepest level is always at least 1, even when the whole
// image already fits a single tile.
func PlanPyramid(width, height, tileSize int) (*PyramidPlan, error) {
	if tileSize <= 0 {
		return nil, newError(InvalidDimension, "tile size must be positive, got %d", tileSize)
	}
	if width <= 0 || height <= 0 {
		return nil, newError(InvalidDimension, "source dimensions must be positive, got %dx%d", width, height)
	}

	maxDim := width
	if height > maxDim {
		maxDim = height
	}
	maxTileDim := (maxDim + tileSize - 1) / tileSize

	maxZoom := 0
	total := int64(1)
	for {
		maxZoom++
		total += int64(1) << uint(2*maxZoom)
		if 1<<uint(maxZoom) >= maxTileDim {
			break
		}
	}

	plan := &PyramidPlan{
		MinZoom:    0,
		MaxZoom:    maptile.Zoom(maxZoom),
		TileSize:   tileSize,
		TotalTiles: total,
		Levels:     make([]Level, 0, maxZoom+1),
	}
	for z := 0; z <= maxZoom; z++ {
		side := 1 << uint(z)
		plan.Levels = append(plan.Levels, Level{
			Zoom:         maptile.Zoom(z),
			Scale:        maxZoom - z,
			CanvasSize:   tileSize * side,
			TilesPerSide: side,
		})
	}
	return plan, nil
}

// Scale returns the number of halvings applied to the source at zoom z.
func (p *PyramidPlan) Scale(z maptile.Zoom) int {
	return int(p.MaxZoom) - int(z)
}

// Level returns the plan for zoom z.
func (p *PyramidPlan) Level(z maptile.Zoom) (Level, bool) {
	if z < p.MinZoom || z > p.MaxZoom {
		return Level{}, false
	}
	return p.Levels[int(z-p.MinZoom)], true
}
