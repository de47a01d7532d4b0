package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// Plane defines a planar object in a point cloud.
type Plane interface {
	// Equation returns the plane equation [0]x + [1]y + [2]z + [3] = 0.
	Equation() [4]float64
	// Normal returns the normal vector of the plane.
	Normal() r3.Vector
	// Center returns the vector of the center point of the inliers of the plane.
	Center() r3.Vector
	// Offset returns the offset of the plane from the origin.
	Offset() float64
	// PointCloud returns the underlying point cloud of the inliers of the plane.
	PointCloud() (PointCloud, error)
	// Distance returns the distance of the given point to the plane.
	Distance(p r3.Vector) float64
	// Intersect returns the intersection point of the plane with the line
	// defined by p0 and p1, or nil if the line is parallel to the plane.
	Intersect(p0, p1 r3.Vector) *r3.Vector
}

type pointcloudPlane struct {
	pointcloud PointCloud
	equation   [4]float64
	center     r3.Vector
}

// NewEmptyPlane initializes an empty plane object.
func NewEmptyPlane() Plane {
	return &pointcloudPlane{New(), [4]float64{}, r3.Vector{}}
}

// NewPlane creates a new plane object from a point cloud and the coefficients
// of its equation.
func NewPlane(cloud PointCloud, equation [4]float64) Plane {
	center := CloudCentroid(cloud)
	return NewPlaneWithCenter(cloud, equation, center)
}

// NewPlaneWithCenter creates a new plane object with a known center.
func NewPlaneWithCenter(cloud PointCloud, equation [4]float64, center r3.Vector) Plane {
	return &pointcloudPlane{cloud, equation, center}
}

func (p *pointcloudPlane) PointCloud() (PointCloud, error) {
	return p.pointcloud, nil
}

func (p *pointcloudPlane) Normal() r3.Vector {
	return r3.Vector{X: p.equation[0], Y: p.equation[1], Z: p.equation[2]}
}

func (p *pointcloudPlane) Center() r3.Vector {
	return p.center
}

func (p *pointcloudPlane) Offset() float64 {
	return p.equation[3]
}

func (p *pointcloudPlane) Equation() [4]float64 {
	return p.equation
}

// Distance calculates the signed distance from the plane to the input point,
// normalized by the norm of the plane normal.
func (p *pointcloudPlane) Distance(pt r3.Vector) float64 {
	norm := p.Normal().Norm()
	if norm == 0 {
		return 0
	}
	return (p.equation[0]*pt.X + p.equation[1]*pt.Y + p.equation[2]*pt.Z + p.equation[3]) / norm
}

// Intersect calculates the intersection of the plane with the infinite line
// through p0 and p1.
func (p *pointcloudPlane) Intersect(p0, p1 r3.Vector) *r3.Vector {
	line := p1.Sub(p0)
	parallel := p.Normal().Dot(line)
	if math.Abs(parallel) < 1e-10 {
		return nil
	}
	w := p0.Sub(p.Normal().Mul(-p.equation[3] / p.Normal().Norm2()))
	fraction := -p.Normal().Dot(w) / parallel
	result := p0.Add(line.Mul(fraction))
	return &result
}
