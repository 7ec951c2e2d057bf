package main

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// resample filters by config name
var resampleFilters = map[string]imaging.ResampleFilter{
	"lanczos":    imaging.Lanczos,
	"catmullrom": imaging.CatmullRom,
	"linear":     imaging.Linear,
	"box":        imaging.Box,
	"nearest":    imaging.NearestNeighbor,
}

// ScaleDimension halves d scale times, rounding up after every step.
func ScaleDimension(d, scale int) int {
	for i := 0; i < scale; i++ {
		d = (d + 1) / 2
	}
	return d
}

// Composer 每层画布生成器
type Composer struct {
	TileSize   int
	Background color.Color
	Filter     imaging.ResampleFilter
}

// NewComposer 创建画布生成器, 默认黑色背景 + Lanczos
func NewComposer(tileSize int) *Composer {
	return &Composer{
		TileSize:   tileSize,
		Background: color.NRGBA{0, 0, 0, 255},
		Filter:     imaging.Lanczos,
	}
}

// ScaledSize 该层源图缩放后的尺寸
func (c *Composer) ScaledSize(src image.Image, level Level) (int, int) {
	b := src.Bounds()
	return ScaleDimension(b.Dx(), level.Scale), ScaleDimension(b.Dy(), level.Scale)
}

// Offset 源图在画布上的居中偏移
func (c *Composer) Offset(canvasSize, w, h int) image.Point {
	return image.Pt((canvasSize-w)/2, (canvasSize-h)/2)
}

// Compose builds the square canvas for level with the scaled source centered on it.
func (c *Composer) Compose(src image.Image, level Level) *image.NRGBA {
	size := c.TileSize << uint(level.Zoom)
	w, h := c.ScaledSize(src, level)

	scaled := src
	if b := src.Bounds(); b.Dx() != w || b.Dy() != h {
		scaled = imaging.Resize(src, w, h, c.Filter)
	}

	canvas := imaging.New(size, size, c.Background)
	return imaging.Overlay(canvas, scaled, c.Offset(size, w, h), 1.0)
}
