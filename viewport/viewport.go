// Package viewport derives the bounding box and zoom level of a map viewport.
package viewport

import (
	"math"

	cluster "github.com/MadAppGang/viewcluster"
)

// Viewport is the visible region of a map: its center and the visible span in degrees.
type Viewport struct {
	Center         cluster.GeoCoordinates
	LatitudeDelta  float64
	LongitudeDelta float64
}

// BoundingBox spans the viewport around its center. Longitudes are not
// wrapped: West < -180 or East > 180 means the box crosses the antimeridian.
func BoundingBox(v Viewport) cluster.BoundingBox {
	return cluster.BoundingBox{
		West:  v.Center.Lon - v.LongitudeDelta/2,
		South: v.Center.Lat - v.LatitudeDelta/2,
		East:  v.Center.Lon + v.LongitudeDelta/2,
		North: v.Center.Lat + v.LatitudeDelta/2,
	}
}

// Zoom is floor(log2(360 / LongitudeDelta)) clamped to [minZoom, maxZoom].
// A span that is zero, negative or not finite gives minZoom. Only the span
// is consulted, the box argument is ignored.
func Zoom(v Viewport, _ cluster.BoundingBox, minZoom, maxZoom int) int {
	span := v.LongitudeDelta
	if !(span > 0) || math.IsInf(span, 0) {
		return minZoom
	}

	zoom := int(math.Floor(math.Log2(360 / span)))
	if zoom > maxZoom {
		zoom = maxZoom
	}
	if zoom < minZoom {
		zoom = minZoom
	}
	return zoom
}
