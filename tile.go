package main

import (
	"github.com/paulmach/orb/maptile"
)

// Tile 自定义瓦片存储
type Tile struct {
	T maptile.Tile
	C []byte
}

// Constants representing TileFormat types
const (
	PNG = "png"
	JPG = "jpg"
)

// Constants representing tile store types
const (
	FILES   = "files"
	MBTILES = "mbtiles"
)

// tileKey 瓦片记录 key
func tileKey(t maptile.Tile) string {
	return fmtTile(t.Z, t.X, t.Y)
}
