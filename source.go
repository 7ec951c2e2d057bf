package main

import (
	"image"
	"os"

	"github.com/disintegration/imaging"

	// 额外解码格式
	_ "golang.org/x/image/webp"
)

// SourceImage 源图, 只读
type SourceImage struct {
	Path   string
	Image  image.Image
	Width  int
	Height int
}

// LoadSource 解码源图并读取尺寸
func LoadSource(path string) (*SourceImage, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, wrapError(SourceReadError, err, "source %s", path)
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, wrapError(SourceReadError, err, "decode source %s", path)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, newError(InvalidDimension, "source %s is %dx%d", path, b.Dx(), b.Dy())
	}
	return &SourceImage{
		Path:   path,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}
