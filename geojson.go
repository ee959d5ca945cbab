package cluster

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// PointsFromFeatureCollection takes every Point feature of fc in order.
// A numeric "radius" property fills Point.Radius, all properties are kept.
func PointsFromFeatureCollection(fc *geojson.FeatureCollection) []Point {
	if fc == nil {
		return nil
	}
	points := make([]Point, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		p := Point{
			Coordinates: GeoCoordinates{Lat: pt.Lat(), Lon: pt.Lon()},
			SourceIndex: len(points),
			Properties:  f.Properties,
		}
		if r, ok := f.Properties["radius"].(float64); ok {
			p.Radius = r
		}
		points = append(points, p)
	}
	return points
}

// ClustersToFeatureCollection renders a query result as GeoJSON. Aggregates
// get the cluster, cluster_id, point_count and point_count_abbreviated
// properties, single points keep their own properties.
func ClustersToFeatureCollection(clusters []Cluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range clusters {
		f := geojson.NewFeature(c.Centroid.Point())
		f.ID = c.ID
		if c.Point != nil {
			for k, v := range c.Point.Properties {
				f.Properties[k] = v
			}
		}
		f.Properties["cluster"] = !c.IsLeaf()
		if !c.IsLeaf() {
			f.Properties["cluster_id"] = c.ID
			f.Properties["point_count"] = c.PointCount
			f.Properties["point_count_abbreviated"] = abbreviate(c.PointCount)
		}
		fc.Append(f)
	}
	return fc
}

// PointsToFeatureCollection renders input points, e.g. the leaves of a cluster.
func PointsToFeatureCollection(points []Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		f := geojson.NewFeature(p.Coordinates.Point())
		f.ID = p.SourceIndex
		for k, v := range p.Properties {
			f.Properties[k] = v
		}
		if p.Radius != 0 {
			f.Properties["radius"] = p.Radius
		}
		fc.Append(f)
	}
	return fc
}

func abbreviate(count int) string {
	switch {
	case count >= 10000:
		return fmt.Sprintf("%dk", int(math.Round(float64(count)/1000)))
	case count >= 1000:
		return strconv.FormatFloat(math.Round(float64(count)/100)/10, 'f', -1, 64) + "k"
	}
	return strconv.Itoa(count)
}
