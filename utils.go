package main

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb/maptile"
)

// FileStore 以 {z}/{x}/{y}.{format} 目录结构保存瓦片
type FileStore struct {
	Layout *TileLayout
}

// NewFileStore 创建目录瓦片存储
func NewFileStore(dir, format string) (*FileStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, wrapError(IOError, err, "create output directory %s", dir)
	}
	return &FileStore{Layout: NewTileLayout(dir, format)}, nil
}

func (s *FileStore) PutTile(tile Tile) error {
	fileName := s.Layout.TilePath(tile.T)
	if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
		return wrapError(IOError, err, "create tile directory for %v", tile.T)
	}
	if err := os.WriteFile(fileName, tile.C, 0644); err != nil {
		return wrapError(IOError, err, "write tile %v", tile.T)
	}
	return nil
}

func (s *FileStore) GetTile(t maptile.Tile) ([]byte, error) {
	data, err := os.ReadFile(s.Layout.TilePath(t))
	if os.IsNotExist(err) {
		return nil, ErrTileNotFound
	}
	return data, err
}

// SetMetadata 写入 metadata.json
func (s *FileStore) SetMetadata(meta map[string]string) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	name := filepath.Join(s.Layout.Root, "metadata.json")
	if err := os.WriteFile(name, data, 0644); err != nil {
		return wrapError(IOError, err, "write %s", name)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// saveCanvas 保存每层完整画布, 仅用于调试
func saveCanvas(layout *TileLayout, z maptile.Zoom, canvas image.Image) error {
	if err := os.MkdirAll(layout.Root, os.ModePerm); err != nil {
		return wrapError(IOError, err, "create output directory %s", layout.Root)
	}
	name := layout.CanvasPath(z)
	if err := imaging.Save(canvas, name); err != nil {
		return wrapError(IOError, err, "write canvas %s", name)
	}
	return nil
}
