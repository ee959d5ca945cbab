package region

import (
	cluster "github.com/MadAppGang/viewcluster"
	"github.com/MadAppGang/viewcluster/internal/metrics"
)

// Expansion is the answer to a cluster press.
type Expansion struct {
	Cluster cluster.Cluster
	Leaves  []cluster.Point
	// Box encloses every leaf, for fitting the map to them.
	Box cluster.BoundingBox
	// ExpansionZoom is the zoom at which the cluster splits into several markers.
	ExpansionZoom int
}

// Expand returns the input points under c. It fails with
// *cluster.UnknownClusterError when c comes from another generation than the
// installed one. Expand changes nothing, pressing the same cluster twice
// returns the same expansion.
func (c *Coordinator) Expand(cl cluster.Cluster) (Expansion, error) {
	gen := c.current.Load()
	if gen == nil || cl.Generation != gen.id {
		metrics.ExpansionsTotal.WithLabelValues("unknown").Inc()
		return Expansion{}, &cluster.UnknownClusterError{ID: cl.ID}
	}

	exp := Expansion{Cluster: cl}
	switch {
	case gen.disabled:
		if cl.ID < 0 || cl.ID >= len(gen.points) {
			metrics.ExpansionsTotal.WithLabelValues("unknown").Inc()
			return Expansion{}, &cluster.UnknownClusterError{ID: cl.ID}
		}
		exp.Leaves = []cluster.Point{gen.points[cl.ID].Clone()}
		exp.ExpansionZoom = gen.opts.MaxZoom

	case gen.index == nil:
		metrics.ExpansionsTotal.WithLabelValues("unknown").Inc()
		return Expansion{}, &cluster.UnknownClusterError{ID: cl.ID}

	default:
		leaves, err := gen.index.GetLeaves(cl.ID, 0)
		if err != nil {
			metrics.ExpansionsTotal.WithLabelValues("unknown").Inc()
			return Expansion{}, err
		}
		zoom, err := gen.index.ExpansionZoom(cl.ID)
		if err != nil {
			metrics.ExpansionsTotal.WithLabelValues("unknown").Inc()
			return Expansion{}, err
		}
		exp.Leaves = leaves
		exp.ExpansionZoom = zoom
	}

	exp.Box = cluster.Enclosing(exp.Leaves)
	metrics.ExpansionsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("cluster expanded", "id", cl.ID, "leaves", len(exp.Leaves), "generation", gen.id)
	return exp, nil
}
