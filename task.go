package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"time"

	"github.com/teris-io/shortid"
)

// TaskOptions 切图任务参数
type TaskOptions struct {
	SourcePath  string
	TargetPath  string
	TileSize    int
	Format      string
	Store       string
	Workers     int
	SaveCanvas  bool
	Background  color.Color
	Resample    string
	JPEGQuality int
	Progress    ProgressSink
}

// Task 切图任务
type Task struct {
	ID       string
	Options  TaskOptions
	Source   *SourceImage
	Plan     *PyramidPlan
	Composer *Composer
	Slicer   *Slicer
	Store    TileStore
	Manifest *Manifest
	layout   *TileLayout
}

type levelCanvas struct {
	level  Level
	canvas *image.NRGBA
}

// NewTask loads the source, plans the pyramid and opens the output store.
func NewTask(opts TaskOptions) (*Task, error) {
	if opts.TileSize <= 0 {
		return nil, newError(InvalidDimension, "tile size must be positive, got %d", opts.TileSize)
	}
	if opts.Format == "" {
		opts.Format = PNG
	}
	src, err := LoadSource(opts.SourcePath)
	if err != nil {
		return nil, err
	}
	plan, err := PlanPyramid(src.Width, src.Height, opts.TileSize)
	if err != nil {
		return nil, err
	}
	encoder, err := NewTileEncoder(opts.Format, opts.JPEGQuality)
	if err != nil {
		return nil, err
	}

	id, _ := shortid.Generate()
	composer := NewComposer(opts.TileSize)
	if opts.Background != nil {
		composer.Background = opts.Background
	}
	if opts.Resample != "" {
		filter, ok := resampleFilters[opts.Resample]
		if !ok {
			return nil, fmt.Errorf("unsupported resample filter %q", opts.Resample)
		}
		composer.Filter = filter
	}

	store, err := OpenStore(opts.Store, opts.TargetPath, encoder.Format())
	if err != nil {
		return nil, err
	}
	manifest, err := NewManifest(opts.TargetPath, opts.Workers)
	if err != nil {
		store.Close()
		return nil, err
	}

	task := &Task{
		ID:       id,
		Options:  opts,
		Source:   src,
		Plan:     plan,
		Composer: composer,
		Store:    store,
		Manifest: manifest,
		layout:   NewTileLayout(opts.TargetPath, encoder.Format()),
	}
	task.Slicer = &Slicer{
		TileSize: opts.TileSize,
		Encoder:  encoder,
		Store:    store,
		Progress: opts.Progress,
		Manifest: manifest,
		Workers:  opts.Workers,
	}
	return task, nil
}

// Run generates every level from the coarsest to the finest. The next level's
// canvas is composed while the current one is being sliced.
func (task *Task) Run(ctx context.Context) error {
	defer task.close()
	log.Infof("Task %s: %s %dx%d, tile size %d", task.ID, task.Source.Path,
		task.Source.Width, task.Source.Height, task.Options.TileSize)
	log.Infof("Total number of zoom levels %d, tiles %d", task.Plan.MaxZoom, task.Plan.TotalTiles)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for lc := range task.composeLevels(runCtx) {
		log.Infof("Generating map tiles for zoom level %d", lc.level.Zoom)
		if task.Options.SaveCanvas {
			if err := saveCanvas(task.layout, lc.level.Zoom, lc.canvas); err != nil {
				return err
			}
		}
		if err := task.Slicer.Slice(runCtx, lc.canvas, lc.level.Zoom); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := task.Store.SetMetadata(task.metadata()); err != nil {
		return err
	}
	if err := task.Manifest.Finalize(task.summary()); err != nil {
		return err
	}
	log.Infof("Finished generating tiles")
	return nil
}

func (task *Task) composeLevels(ctx context.Context) <-chan levelCanvas {
	out := make(chan levelCanvas)
	go func() {
		defer close(out)
		for _, level := range task.Plan.Levels {
			canvas := task.Composer.Compose(task.Source.Image, level)
			select {
			case out <- levelCanvas{level: level, canvas: canvas}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (task *Task) metadata() map[string]string {
	return map[string]string{
		"name":     task.ID,
		"type":     "overlay",
		"format":   task.Slicer.Encoder.Format(),
		"minzoom":  strconv.Itoa(int(task.Plan.MinZoom)),
		"maxzoom":  strconv.Itoa(int(task.Plan.MaxZoom)),
		"tilesize": strconv.Itoa(task.Options.TileSize),
	}
}

func (task *Task) summary() Summary {
	store := task.Options.Store
	if store == "" {
		store = FILES
	}
	return Summary{
		ID:         task.ID,
		Source:     task.Source.Path,
		Width:      task.Source.Width,
		Height:     task.Source.Height,
		TileSize:   task.Options.TileSize,
		Format:     task.Slicer.Encoder.Format(),
		Store:      store,
		MinZoom:    task.Plan.MinZoom,
		MaxZoom:    task.Plan.MaxZoom,
		TotalTiles: task.Plan.TotalTiles,
	}
}

// AbortFun 结束任务时关闭瓦片记录
func (task *Task) AbortFun() {
	task.Manifest.Close()
}

func (task *Task) close() {
	if _, err := task.Manifest.Close(); err != nil {
		log.Warnf("close tile log error, details: %s", err)
	}
	if err := task.Store.Close(); err != nil {
		log.Warnf("close store error, details: %s", err)
	}
}

// InitTask 按配置运行切图任务
func InitTask(ctx context.Context) error {
	start := time.Now()

	opts, err := conf.TaskOptions()
	if err != nil {
		return err
	}
	if conf.Output.OutputTerminal {
		opts.Progress = NewBarProgress(nil, "")
	} else {
		opts.Progress = LogProgress{}
	}

	task, err := NewTask(opts)
	if err != nil {
		return err
	}
	if bar, ok := opts.Progress.(*BarProgress); ok {
		bar.TaskID = task.ID
	}
	// 注册安全退出
	SafeExitInst.Register(task.AbortFun)

	if err := task.Run(ctx); err != nil {
		return err
	}

	secs := time.Since(start).Seconds()
	log.Printf("%.3fs finished...", secs)
	return nil
}
