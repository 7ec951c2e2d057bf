package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb/maptile"
)

const mbtilesSchema = `
CREATE TABLE IF NOT EXISTS tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob);
CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);
CREATE TABLE IF NOT EXISTS metadata (name text, value text);
CREATE UNIQUE INDEX IF NOT EXISTS name ON metadata (name);
`

// MBTilesStore 保存瓦片到 mbtiles (sqlite) 文件, 行号为 TMS 方向
type MBTilesStore struct {
	Path   string
	Format string
	db     *sqlx.DB
	mu     sync.Mutex
}

func mbtilesPath(dir string) string {
	return filepath.Join(dir, "tiles.mbtiles")
}

// NewMBTilesStore 打开或创建 mbtiles 文件
func NewMBTilesStore(path, format string) (*MBTilesStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, wrapError(IOError, err, "create output directory for %s", path)
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, wrapError(IOError, err, "open %s", path)
	}
	// sqlite 单连接写入
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(mbtilesSchema); err != nil {
		db.Close()
		return nil, wrapError(IOError, err, "init schema %s", path)
	}
	return &MBTilesStore{Path: path, Format: format, db: db}, nil
}

// tmsRow converts an XYZ row to the flipped TMS row used by mbtiles.
func tmsRow(t maptile.Tile) uint32 {
	return (uint32(1) << uint32(t.Z)) - 1 - t.Y
}

func (s *MBTilesStore) PutTile(tile Tile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)",
		tile.T.Z, tile.T.X, tmsRow(tile.T), tile.C)
	return wrapError(IOError, err, "insert tile %v", tile.T)
}

func (s *MBTilesStore) GetTile(t maptile.Tile) ([]byte, error) {
	var data []byte
	err := s.db.Get(&data,
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		t.Z, t.X, tmsRow(t))
	if err == sql.ErrNoRows {
		return nil, ErrTileNotFound
	}
	return data, err
}

func (s *MBTilesStore) SetMetadata(meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Beginx()
	if err != nil {
		return wrapError(IOError, err, "begin metadata")
	}
	for name, value := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			tx.Rollback()
			return wrapError(IOError, err, "write metadata %s", name)
		}
	}
	return wrapError(IOError, tx.Commit(), "commit metadata")
}

// Metadata 读取全部 metadata
func (s *MBTilesStore) Metadata() (map[string]string, error) {
	rows := []struct {
		Name  string `db:"name"`
		Value string `db:"value"`
	}{}
	if err := s.db.Select(&rows, "SELECT name, value FROM metadata"); err != nil {
		return nil, err
	}
	meta := make(map[string]string, len(rows))
	for _, r := range rows {
		meta[r.Name] = r.Value
	}
	return meta, nil
}

func (s *MBTilesStore) Close() error {
	return s.db.Close()
}
