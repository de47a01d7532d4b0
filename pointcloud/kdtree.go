package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree extends a PointCloud with a k-d tree index over point positions for
// nearest neighbor queries. The tree is built once from the cloud; mutating
// the cloud afterwards does not update the index.
type KDTree struct {
	cloud PointCloud
	tree  *kdtree.Tree
}

// NewKDTree creates a KDTree from an input PointCloud.
func NewKDTree(cloud PointCloud) *KDTree {
	points := make(kdtree.Points, 0, cloud.Size())
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		points = append(points, kdtree.Point{p.X, p.Y, p.Z})
		return true
	})
	return &KDTree{cloud: cloud, tree: kdtree.New(points, false)}
}

// KNearestNeighbors returns the k nearest points of the cloud to the given
// point, closest first. If includeSelf is false, an exact position match with
// the query point is excluded.
func (kd *KDTree) KNearestNeighbors(p r3.Vector, k int, includeSelf bool) []*PointAndData {
	want := k
	if !includeSelf {
		want = k + 1
	}
	keep := kdtree.NewNKeeper(want)
	kd.tree.NearestSet(keep, kdtree.Point{p.X, p.Y, p.Z})

	nearest := make([]*PointAndData, 0, want)
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			// the keeper's initial sentinel, left when the cloud has fewer
			// points than requested
			continue
		}
		pt, ok := cd.Comparable.(kdtree.Point)
		if !ok {
			continue
		}
		v := r3.Vector{X: pt[0], Y: pt[1], Z: pt[2]}
		if !includeSelf && v.X == p.X && v.Y == p.Y && v.Z == p.Z {
			continue
		}
		d, _ := kd.cloud.At(v.X, v.Y, v.Z)
		nearest = append(nearest, &PointAndData{P: v, D: d})
	}
	sort.Slice(nearest, func(i, j int) bool {
		return euclideanDistance(nearest[i].P, p) < euclideanDistance(nearest[j].P, p)
	})
	if len(nearest) > k {
		nearest = nearest[:k]
	}
	return nearest
}

func euclideanDistance(p, q r3.Vector) float64 {
	return math.Sqrt((p.X-q.X)*(p.X-q.X) + (p.Y-q.Y)*(p.Y-q.Y) + (p.Z-q.Z)*(p.Z-q.Z))
}
