package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// VoxelCoords stores Voxel coordinates in VoxelGrid axes.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// Voxel stores the points of a point cloud that fall into one cell of a
// regular grid in three-dimensional space.
type Voxel struct {
	Key    VoxelCoords
	Points []r3.Vector
	Center r3.Vector
}

// NewVoxel creates a pointer to an empty Voxel struct.
func NewVoxel(coords VoxelCoords) *Voxel {
	return &Voxel{
		Key:    coords,
		Points: make([]r3.Vector, 0),
	}
}

// ComputeCenter computes the barycenter of the points in the voxel.
func (v1 *Voxel) ComputeCenter() {
	center := r3.Vector{}
	for _, pt := range v1.Points {
		center = center.Add(pt)
	}
	center = center.Mul(1. / float64(len(v1.Points)))
	v1.Center = center
}

// VoxelGrid contains the sparse grid of Voxels of a point cloud.
type VoxelGrid struct {
	Voxels    map[VoxelCoords]*Voxel
	voxelSize float64
	ptMin     r3.Vector
}

// GetVoxelCoordinates computes the voxel coordinates of a point in the grid
// anchored at ptMin.
func GetVoxelCoordinates(pt, ptMin r3.Vector, voxelSize float64) VoxelCoords {
	return VoxelCoords{
		I: int64(math.Floor((pt.X - ptMin.X) / voxelSize)),
		J: int64(math.Floor((pt.Y - ptMin.Y) / voxelSize)),
		K: int64(math.Floor((pt.Z - ptMin.Z) / voxelSize)),
	}
}

// GetVoxelFromKey returns a pointer to a voxel from a VoxelCoords key.
func (vg *VoxelGrid) GetVoxelFromKey(coords VoxelCoords) *Voxel {
	return vg.Voxels[coords]
}

// GetAdjacentVoxels gets adjacent voxels in the grid in 26-connectivity.
func (vg *VoxelGrid) GetAdjacentVoxels(v *Voxel) []VoxelCoords {
	I, J, K := v.Key.I, v.Key.J, v.Key.K
	neighborKeys := make([]VoxelCoords, 0)
	for _, i := range []int64{I - 1, I, I + 1} {
		for _, j := range []int64{J - 1, J, J + 1} {
			for _, k := range []int64{K - 1, K, K + 1} {
				vox := VoxelCoords{i, j, k}
				if _, ok := vg.Voxels[vox]; ok && !v.Key.IsEqual(vox) {
					neighborKeys = append(neighborKeys, vox)
				}
			}
		}
	}
	return neighborKeys
}

// NewVoxelGridFromPointCloud creates and fills a VoxelGrid from a point cloud
// with the given voxel edge length.
func NewVoxelGridFromPointCloud(pc PointCloud, voxelSize float64) (*VoxelGrid, error) {
	if voxelSize <= 0 {
		return nil, errors.Errorf("voxel size must be positive, got %f", voxelSize)
	}
	meta := pc.MetaData()
	ptMin := r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ}
	vg := &VoxelGrid{
		Voxels:    make(map[VoxelCoords]*Voxel),
		voxelSize: voxelSize,
		ptMin:     ptMin,
	}

	pc.Iterate(0, 0, func(pt r3.Vector, d Data) bool {
		coords := GetVoxelCoordinates(pt, ptMin, voxelSize)
		vox, ok := vg.Voxels[coords]
		if !ok {
			vox = NewVoxel(coords)
			vg.Voxels[coords] = vox
		}
		vox.Points = append(vox.Points, pt)
		return true
	})

	for _, vox := range vg.Voxels {
		vox.ComputeCenter()
	}
	return vg, nil
}

// ToDownsampledPointCloud converts the voxel grid to a point cloud with one
// point per occupied voxel, at the barycenter of the points in that voxel.
func (vg *VoxelGrid) ToDownsampledPointCloud() (PointCloud, error) {
	pc := NewWithPrealloc(len(vg.Voxels))
	for _, vox := range vg.Voxels {
		if len(vox.Points) == 0 {
			continue
		}
		if err := pc.Set(vox.Center, NewBasicData()); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

// DownsampleByVoxel reduces the cloud by partitioning it into a uniform voxel
// grid of edge voxelSize and replacing the points of every occupied voxel
// with their barycenter. The output never has more points than the input.
func DownsampleByVoxel(pc PointCloud, voxelSize float64) (PointCloud, error) {
	vg, err := NewVoxelGridFromPointCloud(pc, voxelSize)
	if err != nil {
		return nil, err
	}
	return vg.ToDownsampledPointCloud()
}
