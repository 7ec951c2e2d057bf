package main

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// ErrTileNotFound 瓦片不存在
var ErrTileNotFound = errors.New("tile not found")

// TileStore persists encoded tiles keyed by zoom/x/y. Implementations must be
// safe for concurrent PutTile calls and must overwrite existing tiles.
type TileStore interface {
	PutTile(tile Tile) error
	GetTile(t maptile.Tile) ([]byte, error)
	SetMetadata(meta map[string]string) error
	Close() error
}

// OpenStore 按类型打开瓦片存储
func OpenStore(kind, dir, format string) (TileStore, error) {
	switch kind {
	case FILES, "":
		return NewFileStore(dir, format)
	case MBTILES:
		return NewMBTilesStore(mbtilesPath(dir), format)
	}
	return nil, fmt.Errorf("unsupported store %q", kind)
}
