package cluster

import "fmt"

// MaxSupportedZoom is the deepest zoom an index can hold. Cluster ids keep
// their origin zoom in the low five bits.
const MaxSupportedZoom = 30

// Options control how the index is built.
// MinZoom - minimum zoom level to generate clusters
// MaxZoom - maximum zoom level to generate clusters
// MinPoints - smallest number of points that forms a cluster
// Radius - cluster radius in pixels
// Extent - size of tile in pixels, affects clustering radius
// NodeSize is size of the KD-tree node, 64 by default. Higher means faster indexing but slower search, and vise versa.
// RejectEmpty makes Build fail with ErrEmptyInput instead of returning an empty index.
type Options struct {
	MinZoom     int     `yaml:"min_zoom"`
	MaxZoom     int     `yaml:"max_zoom"`
	MinPoints   int     `yaml:"min_points"`
	Radius      float64 `yaml:"radius"`
	Extent      int     `yaml:"extent"`
	NodeSize    int     `yaml:"node_size"`
	RejectEmpty bool    `yaml:"reject_empty"`
}

// DefaultOptions returns:
// MinZoom = 1
// MaxZoom = 20
// MinPoints = 3
// Radius = 60 (DefaultRadius of a 1000px wide screen)
// Extent = 512 (GMaps and OSM default)
// NodeSize = 64
func DefaultOptions() Options {
	return Options{
		MinZoom:   1,
		MaxZoom:   20,
		MinPoints: 3,
		Radius:    DefaultRadius(1000),
		Extent:    512,
		NodeSize:  64,
	}
}

// DefaultRadius scales the cluster radius with the screen width in pixels.
func DefaultRadius(screenWidth float64) float64 {
	return screenWidth * 0.06
}

// Validate checks the options, the returned error is a *ConfigError.
func (o Options) Validate() error {
	switch {
	case o.MinZoom < 0:
		return &ConfigError{Field: "min_zoom", Reason: fmt.Sprintf("%d is negative", o.MinZoom)}
	case o.MaxZoom > MaxSupportedZoom:
		return &ConfigError{Field: "max_zoom", Reason: fmt.Sprintf("%d exceeds %d", o.MaxZoom, MaxSupportedZoom)}
	case o.MinZoom > o.MaxZoom:
		return &ConfigError{Field: "min_zoom", Reason: fmt.Sprintf("%d is above max_zoom %d", o.MinZoom, o.MaxZoom)}
	case o.MinPoints < 2:
		return &ConfigError{Field: "min_points", Reason: fmt.Sprintf("%d is below 2", o.MinPoints)}
	case !(o.Radius > 0):
		return &ConfigError{Field: "radius", Reason: "must be positive"}
	case o.Extent <= 0:
		return &ConfigError{Field: "extent", Reason: "must be positive"}
	case o.NodeSize <= 0:
		return &ConfigError{Field: "node_size", Reason: "must be positive"}
	}
	return nil
}
