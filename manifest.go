package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulmach/orb/maptile"
)

// ManifestFile 生成完成标记
const ManifestFile = "manifest.json"

// TileLogFile 已完成瓦片记录
const TileLogFile = "tiles.log"

// Summary is written as manifest.json once every level has been generated.
type Summary struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	TileSize   int          `json:"tileSize"`
	Format     string       `json:"format"`
	Store      string       `json:"store"`
	MinZoom    maptile.Zoom `json:"minZoom"`
	MaxZoom    maptile.Zoom `json:"maxZoom"`
	TotalTiles int64        `json:"totalTiles"`
	Written    int64        `json:"written"`
	Finished   time.Time    `json:"finished"`
}

// Manifest 记录已写出的瓦片, 全部完成后写 manifest.json
type Manifest struct {
	dir      string
	file     *os.File
	saveChan chan maptile.Tile
	done     chan struct{}
	written  int64
	err      error
	closeMu  sync.Mutex
	isClose  bool
	fileOnce sync.Once
}

// NewManifest 打开瓦片记录文件, 并清除旧的完成标记
func NewManifest(dir string, buf int) (*Manifest, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, wrapError(IOError, err, "create output directory %s", dir)
	}
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil && !os.IsNotExist(err) {
		return nil, wrapError(IOError, err, "remove stale manifest")
	}
	file, err := os.OpenFile(filepath.Join(dir, TileLogFile), os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, wrapError(IOError, err, "open tile log")
	}
	if buf <= 0 {
		buf = 1
	}
	m := &Manifest{
		dir:      dir,
		file:     file,
		saveChan: make(chan maptile.Tile, buf),
		done:     make(chan struct{}),
	}
	go m.start()
	return m, nil
}

func (m *Manifest) start() {
	defer close(m.done)
	for tile := range m.saveChan {
		if _, err := fmt.Fprintln(m.file, tileKey(tile)); err != nil {
			// 只保留第一个写入错误
			if m.err == nil {
				m.err = wrapError(IOError, err, "write %s", TileLogFile)
			}
			continue
		}
		m.written++
	}
}

// SetSuccessed 记录一个已写出的瓦片
func (m *Manifest) SetSuccessed(tile maptile.Tile) {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.isClose {
		return
	}
	m.saveChan <- tile
}

// Close 停止记录, 返回记录数和第一个写入错误
func (m *Manifest) Close() (int64, error) {
	m.closeMu.Lock()
	if !m.isClose {
		m.isClose = true
		close(m.saveChan)
	}
	m.closeMu.Unlock()
	<-m.done
	m.fileOnce.Do(func() {
		if err := m.file.Close(); err != nil && m.err == nil {
			m.err = wrapError(IOError, err, "close %s", TileLogFile)
		}
	})
	return m.written, m.err
}

// Finalize 关闭记录并写出完成标记, 记录文件写入失败时不写标记
func (m *Manifest) Finalize(s Summary) error {
	written, err := m.Close()
	if err != nil {
		return err
	}
	s.Written = written
	s.Finished = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	name := filepath.Join(m.dir, ManifestFile)
	if err := os.WriteFile(name, data, 0644); err != nil {
		return wrapError(IOError, err, "write %s", name)
	}
	return nil
}

// ReadSummary 读取 manifest.json
func ReadSummary(dir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
