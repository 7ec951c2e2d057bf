package main

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/viper"
)

var conf *Conf

// Conf 配置
type Conf struct {
	App struct {
		Version string `mapstructure:"version"`
		Title   string `mapstructure:"title"`
	} `mapstructure:"app"`
	Source struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"source"`
	Output struct {
		Directory      string `mapstructure:"directory"`
		LogDir         string `mapstructure:"logDir"`
		OutputTerminal bool   `mapstructure:"outputTerminal"`
		SaveCanvas     bool   `mapstructure:"saveCanvas"`
		Store          string `mapstructure:"store"`
	} `mapstructure:"output"`
	Tile struct {
		Size        int    `mapstructure:"size"`
		Format      string `mapstructure:"format"`
		Background  string `mapstructure:"background"`
		Resample    string `mapstructure:"resample"`
		JPEGQuality int    `mapstructure:"jpegQuality"`
	} `mapstructure:"tile"`
	Task struct {
		Workers int `mapstructure:"workers"`
	} `mapstructure:"task"`
	Server struct {
		Dir  string `mapstructure:"dir"`
		Bind string `mapstructure:"bind"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.version", "v 0.1.0")
	v.SetDefault("app.title", "Image Tiler")
	v.SetDefault("output.outputTerminal", true)
	v.SetDefault("output.saveCanvas", false)
	v.SetDefault("output.store", FILES)
	v.SetDefault("tile.format", PNG)
	v.SetDefault("tile.background", "#000000")
	v.SetDefault("tile.resample", "lanczos")
	v.SetDefault("tile.jpegQuality", 90)
	v.SetDefault("task.workers", 4)
	v.SetDefault("server.bind", "localhost")
	v.SetDefault("server.port", 8080)
}

// EnvPrefix 环境变量前缀, 如 IMAGETILER_TILE_SIZE 对应 tile.size
const EnvPrefix = "IMAGETILER"

// bindEnv 读取环境变量. 没有默认值的键需显式绑定, 否则 Unmarshal 不会看到它们
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"source.path", "output.directory", "output.logDir", "tile.size", "server.dir"} {
		v.BindEnv(key)
	}
}

// InitConf 初始化配置, 配置文件可选
func InitConf(cfgFile string) error {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return fmt.Errorf("config file(%s) not exist", cfgFile)
		}
		viper.SetConfigType("toml")
		viper.SetConfigFile(cfgFile)
	}
	bindEnv(viper.GetViper())
	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file(%s) error, details: %s", viper.ConfigFileUsed(), err)
		}
	}
	// 设置默认值
	setDefaults(viper.GetViper())

	c, err := loadConf(viper.GetViper())
	if err != nil {
		return err
	}
	conf = c
	return nil
}

func loadConf(v *viper.Viper) (*Conf, error) {
	var c Conf
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("配置文件解析失败: %w", err)
	}
	return &c, nil
}

// ParseBackground 解析 #rrggbb 背景色
func ParseBackground(s string) (color.Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid background %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// TaskOptions 由配置生成切图参数
func (c *Conf) TaskOptions() (TaskOptions, error) {
	if c.Source.Path == "" {
		return TaskOptions{}, fmt.Errorf("source path is required (use --sourcePath)")
	}
	if c.Output.Directory == "" {
		return TaskOptions{}, fmt.Errorf("target path is required (use --targetPath)")
	}
	bg, err := ParseBackground(c.Tile.Background)
	if err != nil {
		return TaskOptions{}, err
	}
	return TaskOptions{
		SourcePath:  c.Source.Path,
		TargetPath:  c.Output.Directory,
		TileSize:    c.Tile.Size,
		Format:      c.Tile.Format,
		Store:       c.Output.Store,
		Workers:     c.Task.Workers,
		SaveCanvas:  c.Output.SaveCanvas,
		Background:  bg,
		Resample:    c.Tile.Resample,
		JPEGQuality: c.Tile.JPEGQuality,
	}, nil
}
