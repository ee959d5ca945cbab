package cluster

// TileFeature is a cluster placed in the pixel space of one tile.
// X and Y are in [0..Extent) for markers inside the tile, markers of the
// Radius wide buffer around the tile fall slightly outside.
type TileFeature struct {
	Cluster
	X, Y int
}

// GetTile returns the features of tile x, y at zoom z with tile pixel
// coordinates. Tiles on the left and right edge of the world include markers
// from the opposite edge so clusters are not cut at the antimeridian.
func (idx *Index) GetTile(x, y, z int) []TileFeature {
	if z < 0 || z > MaxSupportedZoom {
		return nil
	}
	zoom := idx.limitZoom(z)
	tree := idx.trees[zoom]
	if tree == nil {
		return nil
	}
	z2 := 1 << uint(z)
	z2f := float64(z2)
	p := idx.opts.Radius / float64(idx.opts.Extent)
	top := (float64(y) - p) / z2f
	bottom := (float64(y) + 1 + p) / z2f

	ids := tree.Range((float64(x)-p)/z2f, top, (float64(x)+1+p)/z2f, bottom)
	result := idx.tileFeatures(nil, ids, zoom, float64(x), float64(y), z2f)

	if x == 0 {
		ids = tree.Range(1-p/z2f, top, 1, bottom)
		result = idx.tileFeatures(result, ids, zoom, z2f, float64(y), z2f)
	}
	if x == z2-1 {
		ids = tree.Range(0, top, p/z2f, bottom)
		result = idx.tileFeatures(result, ids, zoom, -1, float64(y), z2f)
	}
	return result
}

//calc Point mercator projection regarding tile
func (idx *Index) tileFeatures(dst []TileFeature, ids []int, zoom int, x, y, z2 float64) []TileFeature {
	extent := float64(idx.opts.Extent)
	for _, i := range ids {
		p := idx.levels[zoom][i]
		dst = append(dst, TileFeature{
			Cluster: idx.toCluster(p),
			X:       round(extent * (p.X*z2 - x)),
			Y:       round(extent * (p.Y*z2 - y)),
		})
	}
	return dst
}
