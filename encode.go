package main

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/png"
	"io"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// MaxPaletteColors 调色板最大颜色数
const MaxPaletteColors = 256

// 聚类只用采样像素, 控制每个瓦片的耗时
const (
	paletteSamples = sampleWidth * sampleWidth
	sampleWidth    = 64
	dominantColors = 32
)

// TileEncoder encodes one tile raster.
type TileEncoder interface {
	Encode(w io.Writer, img *image.NRGBA) error
	Format() string
}

// NewTileEncoder 按格式创建编码器
func NewTileEncoder(format string, jpegQuality int) (TileEncoder, error) {
	switch format {
	case PNG, "":
		return &PalettePNGEncoder{MaxColors: MaxPaletteColors}, nil
	case JPG:
		if jpegQuality <= 0 {
			jpegQuality = 90
		}
		return &JPEGEncoder{Quality: jpegQuality}, nil
	}
	return nil, fmt.Errorf("unsupported tile format %q", format)
}

// PalettePNGEncoder writes palette-reduced (8 bit indexed) PNG tiles.
type PalettePNGEncoder struct {
	MaxColors int
}

func (e *PalettePNGEncoder) Format() string { return PNG }

func (e *PalettePNGEncoder) Encode(w io.Writer, img *image.NRGBA) error {
	return imaging.Encode(w, Quantize(img, e.MaxColors), imaging.PNG,
		imaging.PNGCompressionLevel(png.BestCompression))
}

// JPEGEncoder 不带调色板的 jpg 瓦片
type JPEGEncoder struct {
	Quality int
}

func (e *JPEGEncoder) Format() string { return JPG }

func (e *JPEGEncoder) Encode(w io.Writer, img *image.NRGBA) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(e.Quality))
}

// Quantize maps img onto at most maxColors colors. Images that already use
// few enough colors are indexed losslessly; others are dithered with
// Floyd-Steinberg onto the palette from buildPalette.
func Quantize(img *image.NRGBA, maxColors int) *image.Paletted {
	if maxColors <= 0 || maxColors > MaxPaletteColors {
		maxColors = MaxPaletteColors
	}
	if p := exactPalette(img, maxColors); p != nil {
		return p
	}

	b := img.Bounds()
	dst := image.NewPaletted(b, buildPalette(img, maxColors))
	draw.FloydSteinberg.Draw(dst, b, img, b.Min)
	return dst
}

// buildPalette 背景色在前, 然后是采样像素的聚类主色, 余下用 WebSafe 和 Plan9 补齐
func buildPalette(img *image.NRGBA, maxColors int) color.Palette {
	pal := make(color.Palette, 0, maxColors)
	seen := make(map[color.NRGBA]bool, maxColors)
	add := func(c color.Color) {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		if len(pal) < maxColors && !seen[n] {
			seen[n] = true
			pal = append(pal, n)
		}
	}

	samples, bg := samplePixels(img, paletteSamples)
	add(bg)
	k := dominantColors
	if k > maxColors-1 {
		k = maxColors - 1
	}
	if samples != nil && k > 0 {
		for _, c := range dominantcolor.FindWeight(samples, k) {
			add(c.RGBA)
		}
	}
	for _, c := range palette.WebSafe {
		add(c)
	}
	for _, c := range palette.Plan9 {
		add(c)
	}
	return pal
}

// samplePixels takes at most limit pixels on a regular grid and returns the
// most frequent one separately. The remaining samples are packed into a small
// image for clustering, or nil when every sample has that color.
func samplePixels(img *image.NRGBA, limit int) (*image.NRGBA, color.NRGBA) {
	b := img.Bounds()
	step := 1
	for ((b.Dx()+step-1)/step)*((b.Dy()+step-1)/step) > limit {
		step++
	}

	counts := make(map[color.NRGBA]int)
	pts := make([]color.NRGBA, 0, limit)
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c := img.NRGBAAt(x, y)
			counts[c]++
			pts = append(pts, c)
		}
	}

	var bg color.NRGBA
	best := 0
	for _, c := range pts {
		if counts[c] > best {
			best, bg = counts[c], c
		}
	}

	rest := pts[:0]
	for _, c := range pts {
		if c != bg {
			rest = append(rest, c)
		}
	}
	if len(rest) == 0 {
		return nil, bg
	}

	w := sampleWidth
	if len(rest) < w {
		w = len(rest)
	}
	out := image.NewNRGBA(image.Rect(0, 0, w, (len(rest)+w-1)/w))
	for i, c := range rest {
		out.SetNRGBA(i%w, i/w, c)
	}
	return out, bg
}

func exactPalette(img *image.NRGBA, maxColors int) *image.Paletted {
	b := img.Bounds()
	index := make(map[color.NRGBA]uint8, maxColors)
	pal := make(color.Palette, 0, maxColors)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if _, ok := index[c]; ok {
				continue
			}
			if len(pal) == maxColors {
				return nil
			}
			index[c] = uint8(len(pal))
			pal = append(pal, c)
		}
	}

	dst := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetColorIndex(x, y, index[img.NRGBAAt(x, y)])
		}
	}
	return dst
}
