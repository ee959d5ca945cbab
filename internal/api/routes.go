// Package api exposes a coordinator over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/paulmach/orb/geojson"

	cluster "github.com/MadAppGang/viewcluster"
	"github.com/MadAppGang/viewcluster/internal/metrics"
	"github.com/MadAppGang/viewcluster/region"
	"github.com/MadAppGang/viewcluster/viewport"
)

var errNotFinite = errors.New("not a finite number")

// RouterConfig contains router configuration.
type RouterConfig struct {
	Coordinator *region.Coordinator
	CORSOrigins []string
}

// NewRouter creates the HTTP handler. Responses are gzip compressed when the
// client accepts it.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Coordinator.State() != region.Ready {
			http.Error(w, "index not built", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/clusters", func(r chi.Router) {
		r.Get("/", clustersHandler(cfg.Coordinator))
		r.Get("/{id}/leaves", leavesHandler(cfg.Coordinator))
	})

	return gzhttp.GzipHandler(r)
}

type clustersResponse struct {
	Generation     string                     `json:"generation"`
	Zoom           int                        `json:"zoom"`
	BBox           [4]float64                 `json:"bbox"`
	MarkersChanged bool                       `json:"markers_changed"`
	Clusters       *geojson.FeatureCollection `json:"clusters"`
}

type leavesResponse struct {
	ID            int                        `json:"id"`
	ExpansionZoom int                        `json:"expansion_zoom"`
	BBox          [4]float64                 `json:"bbox"`
	Leaves        *geojson.FeatureCollection `json:"leaves"`
}

// clustersHandler answers ?lat=&lon=&lat_delta=&lon_delta= with the visible clusters.
func clustersHandler(c *region.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var v viewport.Viewport
		var err error
		if v.Center.Lat, err = floatParam(q.Get("lat")); err != nil {
			http.Error(w, "invalid lat parameter", http.StatusBadRequest)
			return
		}
		if v.Center.Lon, err = floatParam(q.Get("lon")); err != nil {
			http.Error(w, "invalid lon parameter", http.StatusBadRequest)
			return
		}
		if v.LatitudeDelta, err = floatParam(q.Get("lat_delta")); err != nil {
			http.Error(w, "invalid lat_delta parameter", http.StatusBadRequest)
			return
		}
		if v.LongitudeDelta, err = floatParam(q.Get("lon_delta")); err != nil {
			http.Error(w, "invalid lon_delta parameter", http.StatusBadRequest)
			return
		}
		// some map widgets report the span across the antimeridian as negative
		if v.LongitudeDelta < 0 {
			v.LongitudeDelta += 360
		}

		res := c.RegionChanged(v)
		writeJSON(w, http.StatusOK, clustersResponse{
			Generation:     res.Generation.String(),
			Zoom:           res.Zoom,
			BBox:           bboxArray(res.BBox),
			MarkersChanged: res.MarkersChanged,
			Clusters:       cluster.ClustersToFeatureCollection(res.Clusters),
		})
	}
}

// leavesHandler expands /api/clusters/{id}/leaves?generation=
func leavesHandler(c *region.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid cluster id", http.StatusBadRequest)
			return
		}
		gen, err := uuid.Parse(r.URL.Query().Get("generation"))
		if err != nil {
			http.Error(w, "invalid generation parameter", http.StatusBadRequest)
			return
		}

		exp, err := c.Expand(cluster.Cluster{ID: id, Generation: gen})
		if errors.Is(err, cluster.ErrUnknownCluster) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, leavesResponse{
			ID:            id,
			ExpansionZoom: exp.ExpansionZoom,
			BBox:          bboxArray(exp.Box),
			Leaves:        cluster.PointsToFeatureCollection(exp.Leaves),
		})
	}
}

func floatParam(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func bboxArray(b cluster.BoundingBox) [4]float64 {
	return [4]float64{b.West, b.South, b.East, b.North}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
