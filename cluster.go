package cluster

import (
	"math"

	"github.com/MadAppGang/kdbush"
	"github.com/google/uuid"
)

//That Zoom level indicate a point no level has visited yet
const InfinityZoomLevel = 100

// low bits of a cluster id that hold the zoom of the level its origin lives in
const zoomBits = 5

// Cluster is one marker of a query result.
// PointCount == 1 is a single input point: ID is then its SourceIndex and
// Point is a copy of the input record, writing to it leaves the index intact. Larger counts are aggregates whose ID is
// only meaningful to the Index generation named by Generation.
type Cluster struct {
	ID         int
	Centroid   GeoCoordinates
	PointCount int
	Generation uuid.UUID
	Point      *Point
}

// IsLeaf reports whether the cluster is a single input point.
func (c Cluster) IsLeaf() bool {
	return c.PointCount == 1
}

//node of one zoom level, could be a single point or a set of points
//points that are not merged are shared between levels
type clusterPoint struct {
	X, Y      float64
	zoom      int
	ID        int //source index for points, generated id for clusters
	parentID  int
	NumPoints int
}

func (cp *clusterPoint) Coordinates() (float64, float64) {
	return cp.X, cp.Y
}

// Index is an immutable multi level cluster index over one point set.
// All methods are safe for concurrent use once Build returned.
type Index struct {
	opts       Options
	generation uuid.UUID
	points     []Point

	//one KD-tree per zoom, the MaxZoom+1 level holds the input points
	trees  []*kdbush.KDBush
	levels [][]*clusterPoint
	leaves []*clusterPoint
}

// Build validates opts and clusters points on every level from MaxZoom down
// to MinZoom. Points are copied and their SourceIndex is set to their
// position, their Properties maps are copied too. Points with NaN or
// infinite coordinates are left out.
func Build(points []Point, opts Options) (*Index, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(points) == 0 && opts.RejectEmpty {
		return nil, ErrEmptyInput
	}

	idx := &Index{
		opts:       opts,
		generation: uuid.New(),
		points:     make([]Point, len(points)),
		trees:      make([]*kdbush.KDBush, opts.MaxZoom+2),
		levels:     make([][]*clusterPoint, opts.MaxZoom+2),
		leaves:     make([]*clusterPoint, len(points)),
	}
	for i := range points {
		idx.points[i] = points[i].Clone()
	}

	clusters := idx.translatePoints()
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		//create index from clusters from previous iteration
		idx.setLevel(z+1, clusters)

		//create clusters for level up using just created index
		clusters = idx.clusterize(clusters, z)
	}

	//index topmost points
	idx.setLevel(opts.MinZoom, clusters)
	return idx, nil
}

// Generation identifies this build. Clusters from another generation are
// rejected by the coordinator.
func (idx *Index) Generation() uuid.UUID {
	return idx.generation
}

// Options returns the options the index was built with.
func (idx *Index) Options() Options {
	return idx.opts
}

// Len is the number of indexed input points.
func (idx *Index) Len() int {
	top := idx.levels[idx.opts.MaxZoom+1]
	return len(top)
}

// Query returns every cluster and single point whose position falls in bbox
// at zoom, which is clamped to [MinZoom, MaxZoom]. Boxes crossing the
// antimeridian are queried in two parts and the results are merged without
// duplicates.
func (idx *Index) Query(bbox BoundingBox, zoom int) []Cluster {
	z := idx.limitZoom(zoom)
	result := make([]Cluster, 0)
	tree := idx.trees[z]
	if tree == nil {
		return result
	}

	seen := make(map[int]struct{})
	for _, box := range bbox.Split() {
		minX, minY := MercatorProjection(GeoCoordinates{Lat: box.North, Lon: box.West})
		maxX, maxY := MercatorProjection(GeoCoordinates{Lat: box.South, Lon: box.East})
		for _, i := range tree.Range(minX, minY, maxX, maxY) {
			p := idx.levels[z][i]
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			result = append(result, idx.toCluster(p))
		}
	}
	return result
}

// All returns every cluster and single point of the zoom level.
func (idx *Index) All(zoom int) []Cluster {
	level := idx.levels[idx.limitZoom(zoom)]
	result := make([]Cluster, len(level))
	for i, p := range level {
		result[i] = idx.toCluster(p)
	}
	return result
}

// GetChildren returns the clusters and points one zoom level below the
// cluster with the given id.
func (idx *Index) GetChildren(id int) ([]Cluster, error) {
	originIndex, originZoom, ok := idx.decodeID(id)
	if !ok {
		return nil, &UnknownClusterError{ID: id}
	}
	level := idx.levels[originZoom]
	origin := level[originIndex]
	r := idx.radiusAt(originZoom - 1)

	var children []Cluster
	for _, i := range idx.trees[originZoom].Within(&kdbush.SimplePoint{X: origin.X, Y: origin.Y}, r) {
		if c := level[i]; c.parentID == id {
			children = append(children, idx.toCluster(c))
		}
	}
	if len(children) == 0 {
		return nil, &UnknownClusterError{ID: id}
	}
	return children, nil
}

// GetLeaves returns up to limit input points under the cluster, limit <= 0
// returns all of them. The id of a single point returns that point.
func (idx *Index) GetLeaves(id int, limit int) ([]Point, error) {
	if limit <= 0 {
		limit = math.MaxInt
	}
	var leaves []Point
	if err := idx.appendLeaves(&leaves, id, limit); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (idx *Index) appendLeaves(dst *[]Point, id int, limit int) error {
	if idx.isLeaf(id) {
		*dst = append(*dst, idx.points[id].Clone())
		return nil
	}
	children, err := idx.GetChildren(id)
	if err != nil {
		return err
	}
	for _, c := range children {
		if len(*dst) >= limit {
			break
		}
		if c.IsLeaf() {
			*dst = append(*dst, *c.Point)
			continue
		}
		if err := idx.appendLeaves(dst, c.ID, limit); err != nil {
			return err
		}
	}
	return nil
}

// ExpansionZoom returns the zoom at which the cluster breaks apart into
// several markers. A single point never breaks apart, its expansion zoom is
// MaxZoom.
func (idx *Index) ExpansionZoom(id int) (int, error) {
	if idx.isLeaf(id) {
		return idx.opts.MaxZoom, nil
	}
	_, originZoom, ok := idx.decodeID(id)
	if !ok {
		return 0, &UnknownClusterError{ID: id}
	}
	z := originZoom - 1
	for z <= idx.opts.MaxZoom {
		children, err := idx.GetChildren(id)
		if err != nil {
			return 0, err
		}
		z++
		if len(children) != 1 || children[0].IsLeaf() {
			break
		}
		id = children[0].ID
	}
	return z, nil
}

//clusterize points for zoom level
func (idx *Index) clusterize(points []*clusterPoint, zoom int) []*clusterPoint {
	var result []*clusterPoint
	r := idx.radiusAt(zoom)
	tree := idx.trees[zoom+1]
	n := len(idx.points)

	//iterate all clusters
	for i, p := range points {
		//skip points we have already clustered
		if p.zoom <= zoom {
			continue
		}
		//mark this point as visited
		p.zoom = zoom

		//find all neighbours
		neighbourIDs := tree.Within(&kdbush.SimplePoint{X: p.X, Y: p.Y}, r)

		numPointsOrigin := p.NumPoints
		numPoints := numPointsOrigin
		for _, j := range neighbourIDs {
			if b := points[j]; b.zoom > zoom {
				numPoints += b.NumPoints
			}
		}

		if numPoints > numPointsOrigin && numPoints >= idx.opts.MinPoints {
			wx := p.X * float64(numPointsOrigin)
			wy := p.Y * float64(numPointsOrigin)
			id := (i << zoomBits) + (zoom + 1) + n

			for _, j := range neighbourIDs {
				b := points[j]
				//Filter out neighbours, that are already processed (and processed point "p" as well)
				if b.zoom <= zoom {
					continue
				}
				b.zoom = zoom //set the zoom to skip in other iterations
				wx += b.X * float64(b.NumPoints)
				wy += b.Y * float64(b.NumPoints)
				b.parentID = id
			}
			p.parentID = id

			result = append(result, &clusterPoint{
				X:         wx / float64(numPoints),
				Y:         wy / float64(numPoints),
				zoom:      InfinityZoomLevel,
				ID:        id,
				parentID:  -1,
				NumPoints: numPoints,
			})
			continue
		}

		//not enough points for a cluster, keep them as they are
		result = append(result, p)
		if numPoints > 1 {
			for _, j := range neighbourIDs {
				b := points[j]
				if b.zoom <= zoom {
					continue
				}
				b.zoom = zoom
				result = append(result, b)
			}
		}
	}
	return result
}

func (idx *Index) setLevel(zoom int, points []*clusterPoint) {
	idx.levels[zoom] = points
	if len(points) == 0 {
		return
	}
	idx.trees[zoom] = kdbush.NewBush(clustersToPoints(points), idx.opts.NodeSize)
}

//radius in projected [0..1] units for zoom
func (idx *Index) radiusAt(zoom int) float64 {
	return idx.opts.Radius / (float64(idx.opts.Extent) * math.Pow(2, float64(zoom)))
}

func (idx *Index) limitZoom(zoom int) int {
	if zoom > idx.opts.MaxZoom {
		zoom = idx.opts.MaxZoom
	}
	if zoom < idx.opts.MinZoom {
		zoom = idx.opts.MinZoom
	}
	return zoom
}

func (idx *Index) isLeaf(id int) bool {
	return id >= 0 && id < len(idx.leaves) && idx.leaves[id] != nil
}

//split a generated cluster id into the position and zoom of its origin point
func (idx *Index) decodeID(id int) (int, int, bool) {
	v := id - len(idx.points)
	if v < 0 {
		return 0, 0, false
	}
	originZoom := v % (1 << zoomBits)
	originIndex := v >> zoomBits
	if originZoom <= idx.opts.MinZoom || originZoom > idx.opts.MaxZoom+1 {
		return 0, 0, false
	}
	if idx.trees[originZoom] == nil || originIndex >= len(idx.levels[originZoom]) {
		return 0, 0, false
	}
	return originIndex, originZoom, true
}

func (idx *Index) toCluster(p *clusterPoint) Cluster {
	if p.NumPoints == 1 {
		pt := idx.points[p.ID].Clone()
		return Cluster{
			ID:         p.ID,
			Centroid:   pt.Coordinates,
			PointCount: 1,
			Generation: idx.generation,
			Point:      &pt,
		}
	}
	return Cluster{
		ID:         p.ID,
		Centroid:   ReverseMercatorProjection(p.X, p.Y),
		PointCount: p.NumPoints,
		Generation: idx.generation,
	}
}

/////////////////////////////////
// private stuff
/////////////////////////////////

//translate points to clusterPoints with projection coordinates
func (idx *Index) translatePoints() []*clusterPoint {
	result := make([]*clusterPoint, 0, len(idx.points))
	for i := range idx.points {
		p := &idx.points[i]
		p.SourceIndex = i
		if !p.Coordinates.valid() {
			continue
		}
		cp := &clusterPoint{
			zoom:      InfinityZoomLevel,
			ID:        i,
			parentID:  -1,
			NumPoints: 1,
		}
		cp.X, cp.Y = MercatorProjection(p.Coordinates)
		idx.leaves[i] = cp
		result = append(result, cp)
	}
	return result
}

func clustersToPoints(points []*clusterPoint) []kdbush.Point {
	result := make([]kdbush.Point, len(points))
	for i, v := range points {
		result[i] = v
	}
	return result
}

func round(val float64) int {
	if val < 0 {
		return int(val - 0.5)
	}
	return int(val + 0.5)
}
