// Package segmentation implements the geometry passes of the
// building-surface pipeline: footprint clipping, ground removal, RANSAC plane
// extraction and roof/wall classification.
package segmentation

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/utils"
)

var sortPositions bool

// GetPointCloudPositions extracts the positions of the points from the
// pointcloud into a vector slice.
func GetPointCloudPositions(cloud pc.PointCloud) []r3.Vector {
	positions := make([]r3.Vector, 0, cloud.Size())
	cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
		positions = append(positions, pt)
		return true
	})
	if sortPositions {
		sort.Sort(pc.Vectors(positions))
	}
	return positions
}

// distance assumes the equation carries a unit normal.
func distance(equation [4]float64, pt r3.Vector) float64 {
	return equation[0]*pt.X + equation[1]*pt.Y + equation[2]*pt.Z + equation[3]
}

// pointCloudSplit returns two point clouds, one with points found in a map of
// point positions, and the other with those not in the map.
func pointCloudSplit(cloud pc.PointCloud, inMap map[r3.Vector]bool) (pc.PointCloud, pc.PointCloud, error) {
	mapCloud := pc.NewWithPrealloc(len(inMap))
	nonMapCloud := pc.NewWithPrealloc(cloud.Size() - len(inMap))
	var err error
	seen := make(map[r3.Vector]bool)
	cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
		if _, ok := inMap[pt]; ok {
			seen[pt] = true
			err = mapCloud.Set(pt, d)
		} else {
			err = nonMapCloud.Set(pt, d)
		}
		if err != nil {
			err = errors.Wrapf(err, "error setting point (%v, %v, %v) in point cloud", pt.X, pt.Y, pt.Z)
			return false
		}
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	if len(seen) != len(inMap) {
		return nil, nil, errors.New("map of points contains invalid points not found in the point cloud")
	}
	return mapCloud, nonMapCloud, nil
}

// SegmentPlane segments the biggest plane in the 3D Pointcloud.
// nIterations is the number of iterations for ransac;
// nIter to choose? nIter = log(1-p)/log(1-(1-e)^s), where p is prob of
// success, e is the outlier ratio and s is the subset size (3 for a plane).
// threshold is the maximum allowed distance to the found plane for a point to
// belong to it.
// This function returns a Plane struct, as well as the remaining points in a
// pointcloud.
func SegmentPlane(ctx context.Context, cloud pc.PointCloud, nIterations int, threshold float64) (pc.Plane, pc.PointCloud, error) {
	if threshold <= 0 {
		return nil, nil, errors.Errorf("threshold must be a positive float, got %f", threshold)
	}
	// if the point cloud does not have even 3 points, return the original
	// cloud with no plane
	if cloud.Size() <= 3 {
		return pc.NewEmptyPlane(), cloud, nil
	}
	r := rand.New(rand.NewSource(1))
	pts := GetPointCloudPositions(cloud)
	nPoints := cloud.Size()

	var bestEquation [4]float64
	bestInliers := 0

	for i := 0; i < nIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// sample 3 points from the slice of 3D points
		n1 := utils.SampleRandomIntRange(0, nPoints-1, r)
		n2 := utils.SampleRandomIntRange(0, nPoints-1, r)
		n3 := utils.SampleRandomIntRange(0, nPoints-1, r)
		p1, p2, p3 := pts[n1], pts[n2], pts[n3]

		// get 2 vectors that are going to define the plane
		v1 := p2.Sub(p1)
		v2 := p3.Sub(p1)
		// cross product to get the normal unit vector to the plane (v1, v2)
		cross := v1.Cross(v2)
		if cross.Norm() == 0 {
			// collinear sample
			continue
		}
		vec := cross.Normalize()
		// find current plane equation denoted as:
		// vec.X*x + vec.Y*y + vec.Z*z + d = 0
		// to find d, pick a point and deduce d from the plane equation
		d := -vec.Dot(p2)
		currentEquation := [4]float64{vec.X, vec.Y, vec.Z, d}

		// count the points that are below a certain distance to the plane
		currentInliers := 0
		for _, pt := range pts {
			dist := distance(currentEquation, pt)
			if math.Abs(dist) < threshold {
				currentInliers++
			}
		}
		// if the current plane contains more points than the previously
		// stored one, save it as the biggest plane
		if currentInliers > bestInliers {
			bestEquation = currentEquation
			bestInliers = currentInliers
		}
	}

	// no sample produced a valid candidate, e.g. the cloud is collinear; a
	// zero equation would claim every point as an inlier
	if bestInliers == 0 {
		return pc.NewEmptyPlane(), cloud, nil
	}

	bestInliersMap := make(map[r3.Vector]bool)
	for _, pt := range pts {
		dist := distance(bestEquation, pt)
		if math.Abs(dist) < threshold {
			bestInliersMap[pt] = true
		}
	}

	planeCloud, nonPlaneCloud, err := pointCloudSplit(cloud, bestInliersMap)
	if err != nil {
		return nil, nil, err
	}
	return pc.NewPlane(planeCloud, bestEquation), nonPlaneCloud, nil
}

// RansacConfig are the parameters of the iterative plane extraction.
type RansacConfig struct {
	// DistanceThresh is the maximum distance of an inlier point to its plane.
	DistanceThresh float64 `json:"distance_threshold"`
	// NIterations is the number of candidate samples per extracted plane.
	NIterations int `json:"n_iterations"`
	// MinInliers is the minimum number of points for a plane to be kept.
	MinInliers int `json:"min_inliers"`
	// MaxPlanes caps the number of extracted planes.
	MaxPlanes int `json:"max_planes"`
	// MergeNormalSimilarity merges a new plane into an already found one if
	// the dot product of their unit normals exceeds it and their centers are
	// within MergeCenterDistance. A value > 1 disables merging.
	MergeNormalSimilarity float64 `json:"merge_normal_similarity"`
	MergeCenterDistance   float64 `json:"merge_center_distance"`
}

// CheckValid checks that the parameter inputs are valid.
func (rc *RansacConfig) CheckValid() error {
	if rc.DistanceThresh <= 0 {
		return errors.Errorf("distance_threshold must be a positive float, got %f", rc.DistanceThresh)
	}
	if rc.NIterations <= 0 {
		return errors.Errorf("n_iterations must be a positive int, got %d", rc.NIterations)
	}
	if rc.MinInliers <= 3 {
		return errors.Errorf("min_inliers must be greater than 3, got %d", rc.MinInliers)
	}
	if rc.MaxPlanes <= 0 {
		return errors.Errorf("max_planes must be a positive int, got %d", rc.MaxPlanes)
	}
	if rc.MergeNormalSimilarity < 0 {
		return errors.Errorf("merge_normal_similarity cannot be less than 0, got %f", rc.MergeNormalSimilarity)
	}
	if rc.MergeCenterDistance < 0 {
		return errors.Errorf("merge_center_distance cannot be less than 0, got %f", rc.MergeCenterDistance)
	}
	return nil
}

// ConvertAttributes changes an AttributeMap input into a RansacConfig.
func (rc *RansacConfig) ConvertAttributes(am utils.AttributeMap) error {
	if err := am.Decode(rc); err != nil {
		return err
	}
	return rc.CheckValid()
}

// FindPlanes takes in a point cloud and outputs an array of the planes and a
// point cloud of the leftover points. It repeatedly extracts the dominant
// plane and removes its inliers, until the best plane has fewer than
// MinInliers points or MaxPlanes planes were found. Planes with nearly equal
// normals and nearby centers are merged.
func FindPlanes(ctx context.Context, cloud pc.PointCloud, cfg RansacConfig) ([]pc.Plane, pc.PointCloud, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, nil, err
	}
	planes := make([]pc.Plane, 0)
	nonPlaneCloud := cloud
	for len(planes) < cfg.MaxPlanes {
		plane, rest, err := SegmentPlane(ctx, nonPlaneCloud, cfg.NIterations, cfg.DistanceThresh)
		if err != nil {
			return nil, nil, err
		}
		planeCloud, err := plane.PointCloud()
		if err != nil {
			return nil, nil, err
		}
		if planeCloud.Size() < cfg.MinInliers {
			// add the failed plane cloud back into the leftover cloud
			var serr error
			planeCloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
				serr = rest.Set(pt, d)
				return serr == nil
			})
			if serr != nil {
				return nil, nil, serr
			}
			nonPlaneCloud = rest
			break
		}
		nonPlaneCloud = rest
		merged := false
		for i, existing := range planes {
			if !similarPlanes(existing, plane, cfg.MergeNormalSimilarity, cfg.MergeCenterDistance) {
				continue
			}
			mergedPlane, err := mergePlanes(existing, plane)
			if err != nil {
				return nil, nil, err
			}
			planes[i] = mergedPlane
			merged = true
			break
		}
		if !merged {
			planes = append(planes, plane)
		}
	}
	return planes, nonPlaneCloud, nil
}

// similarPlanes reports whether the two planes are close enough in
// orientation and position to be two patches of the same surface.
func similarPlanes(a, b pc.Plane, normalSimilarity, centerDistance float64) bool {
	na, nb := a.Normal(), b.Normal()
	if na.Norm() == 0 || nb.Norm() == 0 {
		return false
	}
	similarity := math.Abs(na.Normalize().Dot(nb.Normalize()))
	return similarity > normalSimilarity && a.Center().Sub(b.Center()).Norm() < centerDistance
}

// mergePlanes folds the points of b into a, keeping a's equation.
func mergePlanes(a, b pc.Plane) (pc.Plane, error) {
	cloudA, err := a.PointCloud()
	if err != nil {
		return nil, err
	}
	cloudB, err := b.PointCloud()
	if err != nil {
		return nil, err
	}
	merged := pc.NewWithPrealloc(cloudA.Size() + cloudB.Size())
	if err := pc.MergePointClouds([]pc.PointCloud{cloudA, cloudB}, merged); err != nil {
		return nil, err
	}
	return pc.NewPlane(merged, a.Equation()), nil
}
