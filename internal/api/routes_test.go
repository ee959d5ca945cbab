package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cluster "github.com/MadAppGang/viewcluster"
	"github.com/MadAppGang/viewcluster/region"
)

const worldQuery = "/api/clusters?lat=0&lon=0&lat_delta=170&lon_delta=360"

func testPoints() []cluster.Point {
	return []cluster.Point{
		{Coordinates: cluster.GeoCoordinates{Lat: 0, Lon: 0}},
		{Coordinates: cluster.GeoCoordinates{Lat: 0, Lon: 0.0001}},
		{Coordinates: cluster.GeoCoordinates{Lat: 0.0001, Lon: 0}},
		{Coordinates: cluster.GeoCoordinates{Lat: 40, Lon: 100}},
	}
}

func setupRouter(t *testing.T, load bool) (http.Handler, *region.Coordinator) {
	t.Helper()
	c, err := region.New(region.Config{})
	require.NoError(t, err)
	if load {
		require.NoError(t, c.Load(testPoints()))
	}
	return NewRouter(RouterConfig{Coordinator: c, CORSOrigins: []string{"http://localhost:3000"}}), c
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, c := setupRouter(t, false)

	w := get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	require.NoError(t, c.Load(testPoints()))
	w = get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMetrics(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := get(router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "viewcluster_builds_total")
}

func TestClusters(t *testing.T) {
	router, c := setupRouter(t, true)

	w := get(router, worldQuery)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp clustersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, c.Generation().String(), resp.Generation)
	assert.Equal(t, 1, resp.Zoom)
	assert.Equal(t, [4]float64{-180, -85, 180, 85}, resp.BBox)
	assert.True(t, resp.MarkersChanged)
	require.NotNil(t, resp.Clusters)
	assert.Len(t, resp.Clusters.Features, 2)

	var aggregates int
	for _, f := range resp.Clusters.Features {
		if f.Properties["cluster"] == true {
			aggregates++
			assert.Equal(t, 3.0, f.Properties["point_count"])
			assert.Equal(t, "3", f.Properties["point_count_abbreviated"])
		}
	}
	assert.Equal(t, 1, aggregates)
}

func TestClusters_Unbuilt(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := get(router, worldQuery)
	require.Equal(t, http.StatusOK, w.Code)

	var resp clustersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uuid.Nil.String(), resp.Generation)
	assert.Empty(t, resp.Clusters.Features)
}

func TestClusters_NegativeLongitudeSpan(t *testing.T) {
	router, _ := setupRouter(t, true)

	w := get(router, "/api/clusters?lat=-16.5&lon=180&lat_delta=10&lon_delta=-340")
	require.Equal(t, http.StatusOK, w.Code)

	var resp clustersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, [4]float64{170, -21.5, 190, -11.5}, resp.BBox)
	assert.Equal(t, 4, resp.Zoom)
}

func TestClusters_BadParams(t *testing.T) {
	router, _ := setupRouter(t, true)

	for _, target := range []string{
		"/api/clusters",
		"/api/clusters?lat=x&lon=0&lat_delta=1&lon_delta=1",
		"/api/clusters?lat=0&lon=NaN&lat_delta=1&lon_delta=1",
		"/api/clusters?lat=0&lon=0&lat_delta=Inf&lon_delta=1",
		"/api/clusters?lat=0&lon=0&lat_delta=1",
	} {
		w := get(router, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestLeaves(t *testing.T) {
	router, c := setupRouter(t, true)

	var resp clustersResponse
	require.NoError(t, json.Unmarshal(get(router, worldQuery).Body.Bytes(), &resp))

	var id int
	for _, f := range resp.Clusters.Features {
		if f.Properties["cluster"] == true {
			id = int(f.Properties["cluster_id"].(float64))
		}
	}

	w := get(router, fmt.Sprintf("/api/clusters/%d/leaves?generation=%s", id, c.Generation()))
	require.Equal(t, http.StatusOK, w.Code)

	var leaves leavesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &leaves))
	assert.Equal(t, id, leaves.ID)
	assert.Equal(t, 19, leaves.ExpansionZoom)
	assert.Equal(t, [4]float64{0, 0, 0.0001, 0.0001}, leaves.BBox)
	assert.Len(t, leaves.Leaves.Features, 3)
}

func TestLeaves_Errors(t *testing.T) {
	router, c := setupRouter(t, true)

	gen := c.Generation().String()
	cases := []struct {
		target string
		code   int
	}{
		{"/api/clusters/abc/leaves?generation=" + gen, http.StatusBadRequest},
		{"/api/clusters/3/leaves", http.StatusBadRequest},
		{"/api/clusters/3/leaves?generation=" + uuid.NewString(), http.StatusNotFound},
		{"/api/clusters/99999/leaves?generation=" + gen, http.StatusNotFound},
		{"/api/clusters/3/leaves?generation=" + gen, http.StatusOK},
	}
	for _, tc := range cases {
		w := get(router, tc.target)
		assert.Equal(t, tc.code, w.Code, tc.target)
		if tc.code == http.StatusNotFound {
			assert.True(t, strings.Contains(w.Body.String(), "no cluster"), w.Body.String())
		}
	}
}

func TestCORS(t *testing.T) {
	router, _ := setupRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, worldQuery, nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGzip(t *testing.T) {
	router, _ := setupRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, worldQuery, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	// small bodies stay uncompressed, the header is still announced
	assert.Contains(t, w.Header().Get("Vary"), "Accept-Encoding")
}
