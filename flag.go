package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "imagetiler",
	Short: "Cut one large image into a zoomable quadtree of map tiles",
	Long: `imagetiler cuts a raster image into a multi-resolution pyramid of square tiles
addressed by zoom/x/y, the layout used by zoomable map and image viewers.

Every zoom level z gets a square canvas of tileSize*2^z pixels with the source
scaled down and centered on it; the canvas is then cut into 2^z x 2^z tiles.

Examples:
  # 256px tiles into ./tiles/{z}/{x}/{y}.png
  imagetiler --sourcePath map.jpg --targetPath ./tiles --tileSize 256

  # same, into a single mbtiles file, keeping the per level canvases
  imagetiler --sourcePath map.jpg --targetPath ./tiles --tileSize 256 --store mbtiles --save-canvas

  # serve the generated tiles
  imagetiler serve --dir ./tiles --port 8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := InitConf(configPath); err != nil {
			return err
		}
		return InitLog(logLevel)
	},
	RunE: runTiler,
}

// Execute 运行命令行
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "set config `file` (toml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "set log level")

	rootCmd.Flags().String("sourcePath", "", "image to cut in tiles (required)")
	rootCmd.Flags().String("targetPath", "", "destination directory for the generated tiles (required)")
	rootCmd.Flags().Int("tileSize", 0, "size of the image tiles in pixels (required)")
	rootCmd.Flags().Int("workers", 4, "tiles encoded and written in parallel")
	rootCmd.Flags().Bool("save-canvas", false, "also write canvas_{zoom}.png for every level")
	rootCmd.Flags().String("format", PNG, "tile format (png|jpg)")
	rootCmd.Flags().String("store", FILES, "tile store (files|mbtiles)")
	rootCmd.Flags().String("background", "#000000", "canvas background color")
	rootCmd.Flags().String("resample", "lanczos", "resample filter (lanczos|catmullrom|linear|box|nearest)")

	viper.BindPFlag("source.path", rootCmd.Flags().Lookup("sourcePath"))
	viper.BindPFlag("output.directory", rootCmd.Flags().Lookup("targetPath"))
	viper.BindPFlag("tile.size", rootCmd.Flags().Lookup("tileSize"))
	viper.BindPFlag("task.workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("output.saveCanvas", rootCmd.Flags().Lookup("save-canvas"))
	viper.BindPFlag("tile.format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("output.store", rootCmd.Flags().Lookup("store"))
	viper.BindPFlag("tile.background", rootCmd.Flags().Lookup("background"))
	viper.BindPFlag("tile.resample", rootCmd.Flags().Lookup("resample"))
}

func runTiler(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SafeExitInst.Register(cancel)

	return InitTask(ctx)
}
