package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated tiles over HTTP",
	Long: `Serve a generated tile pyramid at /tiles/{z}/{x}/{y}.{format}.

The store type and tile format are read from manifest.json in the tile
directory when present.

Examples:
  imagetiler serve --dir ./tiles
  imagetiler serve --dir ./tiles --bind 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("dir", "", "tile directory (the targetPath of a previous run)")
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")

	viper.BindPFlag("server.dir", serveCmd.Flags().Lookup("dir"))
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// TileService 瓦片服务
type TileService struct {
	store  TileStore
	dir    string
	format string
	chi.Router
}

// NewTileService 创建瓦片服务
func NewTileService(store TileStore, dir, format string) *TileService {
	ts := &TileService{store, dir, format, chi.NewRouter()}

	ts.Get("/health", ts.handleHealth)
	ts.Get("/manifest.json", ts.handleManifest)
	ts.Get("/tiles/{z}/{x}/{y}", ts.handleGetTile)

	return ts
}

func (ts *TileService) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (ts *TileService) handleManifest(w http.ResponseWriter, r *http.Request) {
	summary, err := ReadSummary(ts.dir)
	if err != nil {
		http.Error(w, "manifest not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (ts *TileService) handleGetTile(w http.ResponseWriter, r *http.Request) {
	yStr := chi.URLParam(r, "y")
	if ext := path.Ext(yStr); ext != "" {
		if ext[1:] != ts.format {
			http.NotFound(w, r)
			return
		}
		yStr = yStr[:len(yStr)-len(ext)]
	}

	ints, err := parseTileCoords(chi.URLParam(r, "z"), chi.URLParam(r, "x"), yStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t := maptile.New(ints[1], ints[2], maptile.Zoom(ints[0]))
	if !t.Valid() {
		http.Error(w, fmt.Sprintf("tile %d/%d/%d out of range", t.Z, t.X, t.Y), http.StatusBadRequest)
		return
	}

	data, err := ts.store.GetTile(t)
	if errors.Is(err, ErrTileNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Errorf("read tile %v error ~ %s", t, err)
		http.Error(w, "failed to read tile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(ts.format))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

func parseTileCoords(z, x, y string) ([3]uint32, error) {
	var out [3]uint32
	for i, s := range []string{z, x, y} {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return out, fmt.Errorf("invalid tile coordinate %q", s)
		}
		out[i] = uint32(v)
	}
	if out[0] > 30 {
		return out, fmt.Errorf("zoom %d too large", out[0])
	}
	return out, nil
}

func contentType(format string) string {
	if format == JPG {
		return "image/jpeg"
	}
	return "image/png"
}

// NewRouter 带中间件的路由
func NewRouter(ts *TileService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Mount("/", ts)
	return r
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := conf.Server.Dir
	if dir == "" {
		return fmt.Errorf("tile directory is required (use --dir)")
	}
	if _, err := os.Stat(dir); err != nil {
		return err
	}

	storeKind, format := conf.Output.Store, conf.Tile.Format
	if summary, err := ReadSummary(dir); err == nil {
		storeKind, format = summary.Store, summary.Format
	} else {
		log.Warnf("no %s in %s, serving %s tiles from %s store", ManifestFile, dir, format, storeKind)
	}

	store, err := OpenStore(storeKind, dir, format)
	if err != nil {
		return err
	}
	defer store.Close()

	addr := fmt.Sprintf("%s:%d", conf.Server.Bind, conf.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(NewTileService(store, dir, format)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	SafeExitInst.Register(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Errorf("server shutdown error: %s", err)
		}
	})

	log.Infof("Serving %s on http://%s/tiles/{z}/{x}/{y}.%s", dir, addr, format)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}
	return nil
}
