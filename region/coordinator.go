// Package region keeps the cluster index of an interactive map and answers
// its region changes and cluster presses.
package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	cluster "github.com/MadAppGang/viewcluster"
	"github.com/MadAppGang/viewcluster/internal/logger"
	"github.com/MadAppGang/viewcluster/internal/metrics"
	"github.com/MadAppGang/viewcluster/viewport"
)

// ErrSuperseded is returned for a build that finished after a newer load started.
var ErrSuperseded = errors.New("region: build superseded by a newer load")

// DefaultQueryCacheSize is used when Config.QueryCacheSize is zero.
const DefaultQueryCacheSize = 256

// State of a Coordinator.
type State int

const (
	// Unbuilt has no index yet, region changes report no clusters.
	Unbuilt State = iota
	// Ready has an installed generation.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "unbuilt"
}

// Config of a Coordinator.
type Config struct {
	// Options of the index, the zero value means cluster.DefaultOptions.
	Options cluster.Options
	// Disabled skips clustering, every point is reported as it is.
	Disabled bool
	// QueryCacheSize bounds the cached query results, negative disables the cache.
	QueryCacheSize int
}

// Result is delivered for every region change.
type Result struct {
	Viewport   viewport.Viewport
	BBox       cluster.BoundingBox
	Zoom       int
	Generation uuid.UUID
	Clusters   []cluster.Cluster
	// MarkersChanged is set when Clusters differ from the previous result.
	MarkersChanged bool
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

//one installed build, never modified after install
type generation struct {
	id          uuid.UUID
	opts        cluster.Options
	index       *cluster.Index //nil when disabled or after a failed build
	disabled    bool
	points      []cluster.Point
	passthrough []cluster.Cluster
}

// Coordinator owns the current index generation. Region changes are answered
// against the generation installed when they start; a rebuild swaps the
// generation atomically and never exposes a half built index.
type Coordinator struct {
	logger *slog.Logger
	cache  *lru.Cache[queryKey, []cluster.Cluster]

	current atomic.Pointer[generation]

	loadMu   sync.Mutex
	seq      uint64
	opts     cluster.Options
	disabled bool
	points   []cluster.Point
	loaded   bool

	deliverMu sync.Mutex
	last      []cluster.Cluster
}

type queryKey struct {
	generation uuid.UUID
	bbox       cluster.BoundingBox
	zoom       int
}

// New validates cfg and returns an Unbuilt coordinator.
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	if cfg.Options == (cluster.Options{}) {
		cfg.Options = cluster.DefaultOptions()
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		opts:     cfg.Options,
		disabled: cfg.Disabled,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = logger.L()
	}

	size := cfg.QueryCacheSize
	if size == 0 {
		size = DefaultQueryCacheSize
	}
	if size > 0 {
		cache, err := lru.New[queryKey, []cluster.Cluster](size)
		if err != nil {
			return nil, fmt.Errorf("region: create query cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// State reports whether a generation is installed.
func (c *Coordinator) State() State {
	if c.current.Load() == nil {
		return Unbuilt
	}
	return Ready
}

// Generation returns the id of the installed generation, uuid.Nil when Unbuilt.
func (c *Coordinator) Generation() uuid.UUID {
	if gen := c.current.Load(); gen != nil {
		return gen.id
	}
	return uuid.Nil
}

// Options returns the options used by the next build.
func (c *Coordinator) Options() cluster.Options {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.opts
}

// Load builds a new generation from points and installs it.
// A failed build installs an empty generation, so region changes report no
// clusters, and returns the error. If a newer load started meanwhile the
// build is dropped and ErrSuperseded is returned.
func (c *Coordinator) Load(points []cluster.Point) error {
	seq, opts, disabled := c.begin(points)
	gen, err := c.build(points, opts, disabled)
	return c.install(seq, gen, err)
}

// LoadAsync is Load on a background goroutine. The channel receives the
// result of the build and is closed. A build finishing after ctx is done is
// dropped with ctx.Err().
func (c *Coordinator) LoadAsync(ctx context.Context, points []cluster.Point) <-chan error {
	seq, opts, disabled := c.begin(points)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		gen, err := c.build(points, opts, disabled)
		if ctx.Err() != nil {
			done <- ctx.Err()
			return
		}
		done <- c.install(seq, gen, err)
	}()
	return done
}

// SetOptions validates opts and, once points were loaded, rebuilds with them.
// A load still building with the previous options is superseded.
// Invalid options are returned as *cluster.ConfigError and change nothing.
func (c *Coordinator) SetOptions(opts cluster.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	c.loadMu.Lock()
	c.opts = opts
	if !c.loaded {
		c.loadMu.Unlock()
		return nil
	}
	c.seq++
	seq, points, disabled := c.seq, c.points, c.disabled
	c.loadMu.Unlock()

	gen, err := c.build(points, opts, disabled)
	return c.install(seq, gen, err)
}

// RegionChanged answers a viewport change with the clusters visible in it.
// Calls are serialized, results are delivered in call order.
func (c *Coordinator) RegionChanged(v viewport.Viewport) Result {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	res := Result{Viewport: v}
	gen := c.current.Load()
	if gen == nil {
		return res
	}
	res.Generation = gen.id
	res.BBox = viewport.BoundingBox(v)
	res.Zoom = viewport.Zoom(v, res.BBox, gen.opts.MinZoom, gen.opts.MaxZoom)

	if gen.disabled {
		res.Clusters = cloneClusters(gen.passthrough)
	} else {
		res.Clusters = c.query(gen, res.BBox, res.Zoom)
	}
	res.MarkersChanged = changed(c.last, res.Clusters)
	c.last = slices.Clone(res.Clusters)
	return res
}

func (c *Coordinator) begin(points []cluster.Point) (uint64, cluster.Options, bool) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	c.seq++
	c.points = points
	c.loaded = true
	return c.seq, c.opts, c.disabled
}

func (c *Coordinator) build(points []cluster.Point, opts cluster.Options, disabled bool) (*generation, error) {
	if disabled {
		return passthroughGeneration(points, opts), nil
	}

	start := time.Now()
	idx, err := cluster.Build(points, opts)
	metrics.BuildDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		metrics.BuildFailuresTotal.Inc()
		return nil, fmt.Errorf("region: build index: %w", err)
	}
	c.logger.Debug("index built",
		"points", idx.Len(),
		"generation", idx.Generation(),
		"duration", time.Since(start))
	return &generation{id: idx.Generation(), opts: opts, index: idx}, nil
}

func (c *Coordinator) install(seq uint64, gen *generation, err error) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	if seq != c.seq {
		metrics.BuildsSupersededTotal.Inc()
		return ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, cluster.ErrInvalidConfig) {
			return err
		}
		c.logger.Error("index build failed, clustering disabled for this generation", "err", err)
		gen = &generation{id: uuid.New(), opts: c.opts}
	}

	c.current.Store(gen)
	if c.cache != nil {
		c.cache.Purge()
	}
	metrics.BuildsTotal.Inc()
	if gen.index != nil {
		metrics.IndexedPoints.Set(float64(gen.index.Len()))
	} else {
		metrics.IndexedPoints.Set(float64(len(gen.points)))
	}
	return err
}

func (c *Coordinator) query(gen *generation, bbox cluster.BoundingBox, zoom int) (clusters []cluster.Cluster) {
	if gen.index == nil {
		return []cluster.Cluster{}
	}
	key := queryKey{generation: gen.id, bbox: bbox, zoom: zoom}
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			metrics.QueryCacheHitsTotal.Inc()
			return cloneClusters(cached)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.FailOpenTotal.Inc()
			c.logger.Error("cluster query failed", "panic", r, "bbox", bbox, "zoom", zoom)
			clusters = []cluster.Cluster{}
		}
	}()

	metrics.QueriesTotal.Inc()
	clusters = gen.index.Query(bbox, zoom)
	if c.cache != nil {
		c.cache.Add(key, cloneClusters(clusters))
	}
	return clusters
}

func passthroughGeneration(points []cluster.Point, opts cluster.Options) *generation {
	gen := &generation{
		id:          uuid.New(),
		opts:        opts,
		disabled:    true,
		points:      make([]cluster.Point, len(points)),
		passthrough: make([]cluster.Cluster, len(points)),
	}
	for i := range points {
		gen.points[i] = points[i].Clone()
	}
	for i := range gen.points {
		p := &gen.points[i]
		p.SourceIndex = i
		gen.passthrough[i] = cluster.Cluster{
			ID:         i,
			Centroid:   p.Coordinates,
			PointCount: 1,
			Generation: gen.id,
			Point:      p,
		}
	}
	return gen
}

//copies the slice and every referenced point, results never share state with the generation
func cloneClusters(src []cluster.Cluster) []cluster.Cluster {
	dst := make([]cluster.Cluster, len(src))
	for i, cl := range src {
		if cl.Point != nil {
			p := cl.Point.Clone()
			cl.Point = &p
		}
		dst[i] = cl
	}
	return dst
}

func changed(prev, next []cluster.Cluster) bool {
	if prev == nil || len(prev) != len(next) {
		return true
	}
	for i := range next {
		if prev[i].Generation != next[i].Generation ||
			prev[i].ID != next[i].ID ||
			prev[i].PointCount != next[i].PointCount {
			return true
		}
	}
	return false
}
