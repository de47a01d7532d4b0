package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
)

// CloudCentroid returns the centroid of a pointcloud as a vector.
func CloudCentroid(pc PointCloud) r3.Vector {
	if pc == nil || pc.Size() == 0 {
		return r3.Vector{}
	}
	centroid := r3.Vector{}
	pc.Iterate(0, 0, func(pt r3.Vector, d Data) bool {
		centroid = centroid.Add(pt)
		return true
	})
	return centroid.Mul(1. / float64(pc.Size()))
}

// CloudContains checks if the given cloud has a point at (x, y, z).
func CloudContains(cloud PointCloud, x, y, z float64) bool {
	_, got := cloud.At(x, y, z)
	return got
}

// MergePointClouds merges the points and data of the input clouds into the
// given output cloud. Points that share a position overwrite one another.
func MergePointClouds(clouds []PointCloud, out PointCloud) error {
	var err error
	for _, cloud := range clouds {
		cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			err = out.Set(p, d)
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// MergePointCloudsWithColor merges the input clouds into the output cloud,
// assigning a distinct color to the points of each input cloud.
func MergePointCloudsWithColor(clouds []PointCloud, out PointCloud) error {
	palette := colorful.FastHappyPalette(len(clouds))
	var err error
	for i, cloud := range clouds {
		r, g, b := palette[i].RGB255()
		cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			err = out.Set(p, NewColoredData(color.NRGBA{r, g, b, 255}))
			return err == nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// PrunePointClouds removes point clouds from the slice that have less than
// nMin points.
func PrunePointClouds(clouds []PointCloud, nMin int) []PointCloud {
	pruned := make([]PointCloud, 0, len(clouds))
	for _, cloud := range clouds {
		if cloud.Size() >= nMin {
			pruned = append(pruned, cloud)
		}
	}
	return pruned
}

// CloudMatrixCol is a type that represents the columns of a CloudMatrix.
type CloudMatrixCol int

const (
	// CloudMatrixColX is the x column in the cloud matrix.
	CloudMatrixColX CloudMatrixCol = 0
	// CloudMatrixColY is the y column in the cloud matrix.
	CloudMatrixColY CloudMatrixCol = 1
	// CloudMatrixColZ is the z column in the cloud matrix.
	CloudMatrixColZ CloudMatrixCol = 2
	// CloudMatrixColR is the r column in the cloud matrix.
	CloudMatrixColR CloudMatrixCol = 3
	// CloudMatrixColG is the g column in the cloud matrix.
	CloudMatrixColG CloudMatrixCol = 4
	// CloudMatrixColB is the b column in the cloud matrix.
	CloudMatrixColB CloudMatrixCol = 5
	// CloudMatrixColV is the value column in the cloud matrix.
	CloudMatrixColV CloudMatrixCol = 6
)

// CloudMatrix Returns a Matrix representation of a Cloud along with a Header
// list. The Header list is a list of CloudMatrixCols that correspond to the
// columns in the matrix. NOTE: Every point in the cloud must have the same
// fields for this to be well formed.
func CloudMatrix(pc PointCloud) (*mat.Dense, []CloudMatrixCol) {
	if pc.Size() == 0 {
		return nil, nil
	}
	header := []CloudMatrixCol{CloudMatrixColX, CloudMatrixColY, CloudMatrixColZ}
	pointSize := 3
	if pc.MetaData().HasColor {
		header = append(header, CloudMatrixColR, CloudMatrixColG, CloudMatrixColB)
		pointSize += 3
	}
	if pc.MetaData().HasValue {
		header = append(header, CloudMatrixColV)
		pointSize++
	}

	matData := make([]float64, 0, pc.Size()*pointSize)
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		matData = append(matData, p.X, p.Y, p.Z)
		if pc.MetaData().HasColor {
			r, g, b := d.RGB255()
			matData = append(matData, float64(r), float64(g), float64(b))
		}
		if pc.MetaData().HasValue {
			matData = append(matData, float64(d.Value()))
		}
		return true
	})
	return mat.NewDense(pc.Size(), pointSize, matData), header
}
