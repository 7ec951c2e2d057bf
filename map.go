package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// DefaultTemplate 默认瓦片路径模板
const DefaultTemplate = "{z}/{x}/{y}.{ext}"

// TileLayout 瓦片目录布局
type TileLayout struct {
	Root     string
	Template string
	Format   string
}

// NewTileLayout 创建瓦片目录布局
func NewTileLayout(root, format string) *TileLayout {
	return &TileLayout{
		Root:     root,
		Template: DefaultTemplate,
		Format:   format,
	}
}

// TilePath 获取瓦片文件路径
func (m *TileLayout) TilePath(t maptile.Tile) string {
	rel := strings.Replace(m.Template, "{x}", strconv.Itoa(int(t.X)), -1)
	rel = strings.Replace(rel, "{y}", strconv.Itoa(int(t.Y)), -1)
	rel = strings.Replace(rel, "{z}", strconv.Itoa(int(t.Z)), -1)
	rel = strings.Replace(rel, "{ext}", m.Format, -1)
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// CanvasPath 画布调试文件路径
func (m *TileLayout) CanvasPath(z maptile.Zoom) string {
	return filepath.Join(m.Root, fmt.Sprintf("canvas_%d.png", z))
}

func fmtTile(z maptile.Zoom, x, y uint32) string {
	return fmt.Sprintf("%d-%d-%d", z, x, y)
}
