// Package config handles configuration loading for the clustering demo server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	cluster "github.com/MadAppGang/viewcluster"
	"github.com/MadAppGang/viewcluster/region"
)

// Config represents the server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Cluster ClusterConfig `yaml:"cluster"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig contains data source settings.
type DataConfig struct {
	// PointsPath is a GeoJSON FeatureCollection of Point features.
	PointsPath string `yaml:"points_path"`
}

// ClusterConfig contains clustering settings. The index options are inlined.
type ClusterConfig struct {
	cluster.Options `yaml:",inline"`

	Disabled       bool `yaml:"disabled"`
	QueryCacheSize int  `yaml:"query_cache_size"`
	// ScreenWidth derives the radius when radius is not set.
	ScreenWidth float64 `yaml:"screen_width"`
}

// Region returns the coordinator config.
func (c ClusterConfig) Region() region.Config {
	return region.Config{
		Options:        c.Options,
		Disabled:       c.Disabled,
		QueryCacheSize: c.QueryCacheSize,
	}
}

// Load reads configuration from a YAML file. A missing file gives the default
// configuration. Invalid cluster options are reported as *cluster.ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Cluster.Radius = 0
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(cfg)

	if err := cfg.Cluster.Options.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			PointsPath: "./testdata/places.geojson",
		},
		Cluster: ClusterConfig{
			Options:        cluster.DefaultOptions(),
			QueryCacheSize: region.DefaultQueryCacheSize,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Cluster.Radius == 0 {
		if cfg.Cluster.ScreenWidth > 0 {
			cfg.Cluster.Radius = cluster.DefaultRadius(cfg.Cluster.ScreenWidth)
		} else {
			cfg.Cluster.Radius = defaults.Cluster.Radius
		}
	}
}
