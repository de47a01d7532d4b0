package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// StatisticalOutlierFilter implements the function from PCL with the same
// name: for every point it computes the mean distance to its meanK nearest
// neighbors and removes the points whose mean distance lies beyond
// (global mean + stdDevThresh * global standard deviation).
// https://pcl.readthedocs.io/projects/tutorials/en/latest/statistical_outlier.html
func StatisticalOutlierFilter(meanK int, stdDevThresh float64) (func(in, out PointCloud) error, error) {
	if meanK < 1 {
		return nil, errors.Errorf("argument meanK must be a positive int, got %d", meanK)
	}
	if stdDevThresh <= 0 {
		return nil, errors.Errorf("argument stdDevThresh must be a positive float, got %.2f", stdDevThresh)
	}

	filterFunc := func(in, out PointCloud) error {
		if out == nil {
			return errors.New("must provide an output point cloud")
		}
		tree := NewKDTree(in)

		// get the mean distance to the nearest neighbors of every point
		points := make([]PointAndData, 0, in.Size())
		in.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			points = append(points, PointAndData{P: p, D: d})
			return true
		})
		avgDistances := make([]float64, 0, len(points))
		for _, pd := range points {
			neighbors := tree.KNearestNeighbors(pd.P, meanK, false)
			sumDist := 0.0
			for _, n := range neighbors {
				sumDist += euclideanDistance(pd.P, n.P)
			}
			if len(neighbors) == 0 {
				avgDistances = append(avgDistances, 0)
				continue
			}
			avgDistances = append(avgDistances, sumDist/float64(len(neighbors)))
		}
		mean, stddev := stat.MeanStdDev(avgDistances, nil)
		threshold := mean + stdDevThresh*stddev

		for i, pd := range points {
			if avgDistances[i] > threshold {
				continue
			}
			if err := out.Set(pd.P, pd.D); err != nil {
				return err
			}
		}
		return nil
	}
	return filterFunc, nil
}
