// Command play serves the clusters of a GeoJSON point file over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb/geojson"

	cluster "github.com/MadAppGang/viewcluster"
	"github.com/MadAppGang/viewcluster/internal/api"
	"github.com/MadAppGang/viewcluster/internal/config"
	"github.com/MadAppGang/viewcluster/internal/logger"
	"github.com/MadAppGang/viewcluster/region"
)

func importData(filename string) ([]cluster.Point, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return cluster.PointsFromFeatureCollection(fc), nil
}

func main() {
	configPath := flag.String("config", "config/play.yaml", "Path to configuration file")
	flag.Parse()

	// .env is optional, it only feeds LOG_LEVEL / LOG_FORMAT
	_ = godotenv.Load()
	log := logger.Setup()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	coordinator, err := region.New(cfg.Cluster.Region(), region.WithLogger(log))
	if err != nil {
		log.Error("failed to create coordinator", "err", err)
		os.Exit(1)
	}

	points, err := importData(cfg.Data.PointsPath)
	if err != nil {
		log.Error("failed to import points", "path", cfg.Data.PointsPath, "err", err)
		os.Exit(1)
	}
	log.Info("points imported", "path", cfg.Data.PointsPath, "count", len(points))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build in the background, /health reports 503 until the index is ready
	built := coordinator.LoadAsync(ctx, points)
	go func() {
		if err := <-built; err != nil {
			log.Error("index build failed", "err", err)
			return
		}
		log.Info("index ready", "generation", coordinator.Generation())
	}()

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(api.RouterConfig{
			Coordinator: coordinator,
			CORSOrigins: cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	log.Info("server stopped")
}
