package cluster

import (
	"maps"
	"math"

	"github.com/paulmach/orb"
)

// GeoCoordinates represent position in the Earth
type GeoCoordinates struct {
	Lat float64
	Lon float64
}

// Point converts coordinates to an orb point (lon, lat order).
func (g GeoCoordinates) Point() orb.Point {
	return orb.Point{g.Lon, g.Lat}
}

func (g GeoCoordinates) valid() bool {
	return !math.IsNaN(g.Lat) && !math.IsNaN(g.Lon) &&
		!math.IsInf(g.Lat, 0) && !math.IsInf(g.Lon, 0)
}

// Point is one input location.
// SourceIndex is the position of the point in the slice passed to Build, so
// expansion results can be joined back to the caller's own records.
// Radius is optional metadata (0 means none) that is carried through untouched.
type Point struct {
	Coordinates GeoCoordinates
	SourceIndex int
	Radius      float64
	Properties  map[string]interface{}
}

// Clone returns a copy of p that shares no Properties map with it.
func (p Point) Clone() Point {
	p.Properties = maps.Clone(p.Properties)
	return p
}

// BoundingBox is a geographic rectangle in degrees.
// West > East, West < -180 or East > 180 mean the box crosses the antimeridian.
type BoundingBox struct {
	West, South, East, North float64
}

// World covers every longitude and latitude.
var World = BoundingBox{West: -180, South: -90, East: 180, North: 90}

// Wraps reports whether the box crosses the antimeridian.
func (b BoundingBox) Wraps() bool {
	if b.East-b.West >= 360 {
		return false
	}
	return b.West > b.East || b.West < -180 || b.East > 180
}

// Bound converts the box to an orb bound. A wrapping box has no single
// orb.Bound, use Split first.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Split normalises the box into one or two boxes with longitudes in
// [-180, 180] and latitudes in [-90, 90]. A box crossing the antimeridian
// becomes [West, 180] and [-180, East]. Boxes with NaN edges yield nothing.
func (b BoundingBox) Split() []BoundingBox {
	if math.IsNaN(b.West) || math.IsNaN(b.East) || math.IsNaN(b.South) || math.IsNaN(b.North) {
		return nil
	}
	south := clamp(b.South, -90, 90)
	north := clamp(b.North, -90, 90)
	if south > north {
		south, north = north, south
	}

	if b.East-b.West >= 360 || math.IsInf(b.West, 0) || math.IsInf(b.East, 0) {
		return []BoundingBox{{West: -180, South: south, East: 180, North: north}}
	}

	//the antimeridian itself stays on the side the edge names
	west, east := 180.0, 180.0
	if b.West != 180 {
		west = wrapLongitude(b.West)
	}
	if b.East != 180 {
		east = wrapLongitude(b.East)
	}
	if west > east {
		return []BoundingBox{
			{West: west, South: south, East: 180, North: north},
			{West: -180, South: south, East: east, North: north},
		}
	}
	return []BoundingBox{{West: west, South: south, East: east, North: north}}
}

// Enclosing returns the smallest box holding every point. An empty slice
// gives the zero box.
func Enclosing(points []Point) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	mp := make(orb.MultiPoint, len(points))
	for i := range points {
		mp[i] = points[i].Coordinates.Point()
	}
	bound := mp.Bound()
	return BoundingBox{
		West:  bound.Min.Lon(),
		South: bound.Min.Lat(),
		East:  bound.Max.Lon(),
		North: bound.Max.Lat(),
	}
}

// longitude/latitude to spherical mercator in [0..1] range
func MercatorProjection(coordinates GeoCoordinates) (float64, float64) {
	x := coordinates.Lon/360.0 + 0.5
	sin := math.Sin(coordinates.Lat * math.Pi / 180.0)
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	if y < 0 {
		y = 0
	}
	if y > 1 {
		y = 1
	}
	return x, y
}

// ReverseMercatorProjection maps [0..1] mercator coordinates back to longitude/latitude.
func ReverseMercatorProjection(x, y float64) GeoCoordinates {
	result := GeoCoordinates{}
	result.Lon = (x - 0.5) * 360
	y2 := (180 - y*360) * math.Pi / 180.0
	result.Lat = 360*math.Atan(math.Exp(y2))/math.Pi - 90
	return result
}

func wrapLongitude(lon float64) float64 {
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
