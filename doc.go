// MIT License
//
// Copyright (c) 2016 MadAppGang

// Package cluster is a fast library for viewport point clustering on maps.
//
// The index uses hierarchical greedy clustering: points are merged pairwise nearest first at
// MaxZoom and the result is merged again on every coarser level down to MinZoom. Every level is
// stored in its own KD-tree, so a viewport query is a range search on one tree.
//
// This approach is the one of Leaflet.markercluster and MapBox's supercluster: https://www.mapbox.com/blog/supercluster/
//
// Very easy to use:
//
//	//1.Build the index, points are copied
//	idx, err := cluster.Build(points, cluster.DefaultOptions())
//
//	//2.Get markers of the visible box at the current zoom
//	clusters := idx.Query(cluster.BoundingBox{West: -10, South: 35, East: 30, North: 60}, 4)
//
//	//3.Expand a pressed cluster into its points
//	leaves, err := idx.GetLeaves(clusters[0].ID, 0)
//
// An Index never changes after Build. When the points or the options change build a new one:
// every build is a new generation with a new uuid, and cluster ids are only valid for the
// generation that produced them.
//
// Single points keep their position in the input slice as id. Cluster ids are generated from
// the position and zoom of the point the cluster grew from, so ids of clusters are always >= the
// number of input points.
//
// Package viewport turns a map viewport into a bounding box and a zoom, package region keeps the
// current index of an interactive map and answers region changes and cluster presses.
package cluster
