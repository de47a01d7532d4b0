package segmentation

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/utils"
)

// Footprint is an ordered polygon in the horizontal plane, given as its
// vertices. The polygon is implicitly closed, the last vertex connects back
// to the first.
type Footprint []r2.Point

// Contains reports whether the given point lies inside the polygon, using
// even-odd ray casting. Points exactly on an edge may fall on either side.
func (fp Footprint) Contains(pt r2.Point) bool {
	inside := false
	n := len(fp)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := fp[i], fp[j]
		if (vi.Y > pt.Y) == (vj.Y > pt.Y) {
			continue
		}
		// x coordinate where the edge crosses the horizontal ray at pt.Y
		crossX := (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y) + vi.X
		if pt.X < crossX {
			inside = !inside
		}
	}
	return inside
}

// CropToFootprint returns a new point cloud with only the points whose (x, y)
// projection falls within the footprint polygon.
func CropToFootprint(cloud pc.PointCloud, fp Footprint) (pc.PointCloud, error) {
	if len(fp) < 3 {
		return nil, errors.Errorf("footprint must have at least 3 vertices, got %d", len(fp))
	}
	cropped := pc.New()
	var err error
	cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
		if !fp.Contains(r2.Point{X: pt.X, Y: pt.Y}) {
			return true
		}
		err = cropped.Set(pt, d)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return cropped, nil
}

// RemoveGround returns a new point cloud with all points at or below the
// given elevation removed.
func RemoveGround(cloud pc.PointCloud, zThresh float64) (pc.PointCloud, error) {
	above := pc.New()
	var err error
	cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
		if pt.Z <= zThresh {
			return true
		}
		err = above.Set(pt, d)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return above, nil
}

// SegmenterConfig are the parameters of the footprint clip and ground
// removal pass.
type SegmenterConfig struct {
	// Footprint is the building outline, a list of [x, y] vertex pairs.
	Footprint [][]float64 `json:"footprint"`
	// GroundZThresh is the elevation at or below which points are treated as
	// ground and removed.
	GroundZThresh float64 `json:"ground_z_threshold"`
}

// CheckValid checks that the parameter inputs are valid.
func (sc *SegmenterConfig) CheckValid() error {
	if len(sc.Footprint) < 3 {
		return errors.Errorf("footprint must have at least 3 vertices, got %d", len(sc.Footprint))
	}
	for i, v := range sc.Footprint {
		if len(v) != 2 {
			return errors.Errorf("footprint vertex %d must have exactly 2 coordinates, got %d", i, len(v))
		}
	}
	return nil
}

// ConvertAttributes changes an AttributeMap input into a SegmenterConfig.
func (sc *SegmenterConfig) ConvertAttributes(am utils.AttributeMap) error {
	if err := am.Decode(sc); err != nil {
		return err
	}
	return sc.CheckValid()
}

// Polygon converts the configured vertex list into a Footprint.
func (sc *SegmenterConfig) Polygon() Footprint {
	fp := make(Footprint, 0, len(sc.Footprint))
	for _, v := range sc.Footprint {
		fp = append(fp, r2.Point{X: v[0], Y: v[1]})
	}
	return fp
}
