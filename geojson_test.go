package cluster

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsFromFeatureCollection(t *testing.T) {
	raw, err := os.ReadFile("./testdata/places.geojson")
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 52)

	points := PointsFromFeatureCollection(fc)
	require.Len(t, points, 51, "the line string is skipped")
	for i, p := range points {
		assert.Equal(t, i, p.SourceIndex)
	}
	assert.Equal(t, 100.0, points[0].Radius)
	assert.Zero(t, points[48].Radius)
	assert.Equal(t, "Taveuni", points[48].Properties["name"])
	assert.Equal(t, GeoCoordinates{Lat: -16.8, Lon: 179.9}, points[48].Coordinates)

	assert.Nil(t, PointsFromFeatureCollection(nil))
}

func TestClustersToFeatureCollection(t *testing.T) {
	pt := &Point{
		Coordinates: GeoCoordinates{Lat: 1, Lon: 2},
		SourceIndex: 7,
		Properties:  map[string]interface{}{"name": "kiosk"},
	}
	fc := ClustersToFeatureCollection([]Cluster{
		{ID: 7, Centroid: pt.Coordinates, PointCount: 1, Point: pt},
		{ID: 4131, Centroid: GeoCoordinates{Lat: 10, Lon: 20}, PointCount: 2345},
	})
	require.Len(t, fc.Features, 2)

	leaf := fc.Features[0]
	assert.Equal(t, orb.Point{2, 1}, leaf.Geometry)
	assert.Equal(t, 7, leaf.ID)
	assert.Equal(t, false, leaf.Properties["cluster"])
	assert.Equal(t, "kiosk", leaf.Properties["name"])
	assert.NotContains(t, leaf.Properties, "point_count")
	assert.NotContains(t, pt.Properties, "cluster", "input properties are not modified")

	agg := fc.Features[1]
	assert.Equal(t, orb.Point{20, 10}, agg.Geometry)
	assert.Equal(t, true, agg.Properties["cluster"])
	assert.Equal(t, 4131, agg.Properties["cluster_id"])
	assert.Equal(t, 2345, agg.Properties["point_count"])
	assert.Equal(t, "2.3k", agg.Properties["point_count_abbreviated"])

	_, err := json.Marshal(fc)
	assert.NoError(t, err)
}

func TestPointsToFeatureCollection(t *testing.T) {
	fc := PointsToFeatureCollection([]Point{
		{Coordinates: GeoCoordinates{Lat: 1, Lon: 2}, SourceIndex: 3, Radius: 150},
		{Coordinates: GeoCoordinates{Lat: 4, Lon: 5}, SourceIndex: 9},
	})
	require.Len(t, fc.Features, 2)
	assert.Equal(t, 3, fc.Features[0].ID)
	assert.Equal(t, 150.0, fc.Features[0].Properties["radius"])
	assert.NotContains(t, fc.Features[1].Properties, "radius")
}

func TestAbbreviate(t *testing.T) {
	cases := map[int]string{
		3:      "3",
		999:    "999",
		1000:   "1k",
		1049:   "1k",
		1050:   "1.1k",
		2345:   "2.3k",
		9999:   "10k",
		10000:  "10k",
		12500:  "13k",
		150000: "150k",
	}
	for in, want := range cases {
		assert.Equal(t, want, abbreviate(in), "count %d", in)
	}
}
