package region

import (
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cluster "github.com/MadAppGang/viewcluster"
)

func biggest(clusters []cluster.Cluster) cluster.Cluster {
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].PointCount > clusters[j].PointCount })
	return clusters[0]
}

func TestExpand(t *testing.T) {
	c := newCoordinator(t, Config{})
	require.NoError(t, c.Load(nearbyPoints()))

	group := biggest(c.RegionChanged(worldView).Clusters)
	require.Equal(t, 3, group.PointCount)

	exp, err := c.Expand(group)
	require.NoError(t, err)
	assert.Equal(t, group, exp.Cluster)
	assert.Len(t, exp.Leaves, 3)
	assert.Equal(t, 19, exp.ExpansionZoom)

	for _, l := range exp.Leaves {
		assert.GreaterOrEqual(t, l.Coordinates.Lon, exp.Box.West)
		assert.LessOrEqual(t, l.Coordinates.Lon, exp.Box.East)
		assert.GreaterOrEqual(t, l.Coordinates.Lat, exp.Box.South)
		assert.LessOrEqual(t, l.Coordinates.Lat, exp.Box.North)
	}
	assert.Equal(t, cluster.BoundingBox{West: 0, South: 0, East: 0.0001, North: 0.0001}, exp.Box)

	again, err := c.Expand(group)
	require.NoError(t, err)
	assert.Equal(t, exp, again)
}

func TestExpand_Leaf(t *testing.T) {
	c := newCoordinator(t, Config{})
	require.NoError(t, c.Load(nearbyPoints()))

	var leaf cluster.Cluster
	for _, cl := range c.RegionChanged(worldView).Clusters {
		if cl.IsLeaf() {
			leaf = cl
		}
	}
	require.True(t, leaf.IsLeaf())

	exp, err := c.Expand(leaf)
	require.NoError(t, err)
	require.Len(t, exp.Leaves, 1)
	assert.Equal(t, 3, exp.Leaves[0].SourceIndex)
	assert.Equal(t, 20, exp.ExpansionZoom)
	assert.Equal(t, cluster.BoundingBox{West: 100, South: 40, East: 100, North: 40}, exp.Box)
}

func TestExpand_Disabled(t *testing.T) {
	c := newCoordinator(t, Config{Disabled: true})
	require.NoError(t, c.Load(nearbyPoints()))

	res := c.RegionChanged(worldView)
	exp, err := c.Expand(res.Clusters[2])
	require.NoError(t, err)
	require.Len(t, exp.Leaves, 1)
	assert.Equal(t, 2, exp.Leaves[0].SourceIndex)
	assert.Equal(t, cluster.DefaultOptions().MaxZoom, exp.ExpansionZoom)

	_, err = c.Expand(cluster.Cluster{ID: 17, Generation: res.Generation})
	assert.ErrorIs(t, err, cluster.ErrUnknownCluster)
}

func TestExpand_UnknownCluster(t *testing.T) {
	c := newCoordinator(t, Config{})

	_, err := c.Expand(cluster.Cluster{ID: 4, Generation: uuid.New()})
	assert.ErrorIs(t, err, cluster.ErrUnknownCluster, "nothing built yet")

	require.NoError(t, c.Load(nearbyPoints()))
	gen := c.Generation()

	_, err = c.Expand(cluster.Cluster{ID: 3, Generation: uuid.New()})
	assert.ErrorIs(t, err, cluster.ErrUnknownCluster, "foreign generation")

	_, err = c.Expand(cluster.Cluster{ID: 1 << 20, Generation: gen})
	var unknown *cluster.UnknownClusterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 1<<20, unknown.ID)
}
