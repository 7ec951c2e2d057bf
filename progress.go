package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/paulmach/orb/maptile"
	pb "gopkg.in/cheggaaa/pb.v1"
)

// ProgressSink receives slicing progress. Implementations must accept TileDone
// from several workers at once.
type ProgressSink interface {
	LevelStarted(z maptile.Zoom, total int64)
	TileDone(t maptile.Tile)
	LevelFinished(z maptile.Zoom)
}

// NopProgress 不输出进度
type NopProgress struct{}

func (NopProgress) LevelStarted(maptile.Zoom, int64) {}
func (NopProgress) TileDone(maptile.Tile)            {}
func (NopProgress) LevelFinished(maptile.Zoom)       {}

// BarProgress 每层一个进度条
type BarProgress struct {
	Output io.Writer
	TaskID string
	mu     sync.Mutex
	bar    *pb.ProgressBar
}

// NewBarProgress 创建进度条输出
func NewBarProgress(w io.Writer, taskID string) *BarProgress {
	return &BarProgress{Output: w, TaskID: taskID}
}

func (p *BarProgress) LevelStarted(z maptile.Zoom, total int64) {
	bar := pb.New64(total).Prefix(fmt.Sprintf("Zoom %d : ", z)).Postfix("\n")
	bar.Output = p.Output
	bar.SetRefreshRate(time.Second)
	bar.Start()

	p.mu.Lock()
	p.bar = bar
	p.mu.Unlock()
}

func (p *BarProgress) TileDone(maptile.Tile) {
	p.mu.Lock()
	bar := p.bar
	p.mu.Unlock()
	if bar != nil {
		bar.Increment()
	}
}

func (p *BarProgress) LevelFinished(z maptile.Zoom) {
	p.mu.Lock()
	bar := p.bar
	p.bar = nil
	p.mu.Unlock()
	if bar != nil {
		bar.FinishPrint(fmt.Sprintf("Task %s Zoom %d finished ~", p.TaskID, z))
	}
}

// LogProgress 以日志形式输出进度
type LogProgress struct{}

func (LogProgress) LevelStarted(z maptile.Zoom, total int64) {
	log.Infof("zoom: %d, tiles: %d", z, total)
}

func (LogProgress) TileDone(t maptile.Tile) {
	log.Debugf("tile(z:%d, x:%d, y:%d) done", t.Z, t.X, t.Y)
}

func (LogProgress) LevelFinished(z maptile.Zoom) {
	log.Infof("zoom %d finished", z)
}

// MultiProgress 同时输出到多个 sink
type MultiProgress []ProgressSink

func (m MultiProgress) LevelStarted(z maptile.Zoom, total int64) {
	for _, s := range m {
		s.LevelStarted(z, total)
	}
}

func (m MultiProgress) TileDone(t maptile.Tile) {
	for _, s := range m {
		s.TileDone(t)
	}
}

func (m MultiProgress) LevelFinished(z maptile.Zoom) {
	for _, s := range m {
		s.LevelFinished(z)
	}
}
