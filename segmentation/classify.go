package segmentation

import (
	"math"

	"github.com/pkg/errors"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/utils"
)

// SurfaceClass labels an extracted plane as a building surface type.
type SurfaceClass int

// The surface classes a plane can be assigned to. Planes that match neither
// rule, slanted surfaces and low horizontal patches, stay Unknown.
const (
	SurfaceUnknown SurfaceClass = iota
	SurfaceWall
	SurfaceRoof
)

func (sc SurfaceClass) String() string {
	switch sc {
	case SurfaceWall:
		return "wall"
	case SurfaceRoof:
		return "roof"
	default:
		return "unknown"
	}
}

// ClassifierConfig are the parameters of the roof/wall decision rules.
// Verticality is the absolute z component of a plane's unit normal, 0 for a
// vertical surface and 1 for a horizontal one.
type ClassifierConfig struct {
	// WallMaxVerticality is the largest verticality a wall can have.
	WallMaxVerticality float64 `json:"wall_max_verticality"`
	// RoofMinVerticality is the smallest verticality a roof can have.
	RoofMinVerticality float64 `json:"roof_min_verticality"`
	// MinRoofHeight is the smallest mean elevation of a horizontal plane for
	// it to count as a roof rather than a slab or terrace.
	MinRoofHeight float64 `json:"min_roof_height"`
}

// CheckValid checks that the parameter inputs are valid.
func (cc *ClassifierConfig) CheckValid() error {
	if cc.WallMaxVerticality <= 0 || cc.WallMaxVerticality > 1 {
		return errors.Errorf("wall_max_verticality must be in (0, 1], got %f", cc.WallMaxVerticality)
	}
	if cc.RoofMinVerticality <= 0 || cc.RoofMinVerticality > 1 {
		return errors.Errorf("roof_min_verticality must be in (0, 1], got %f", cc.RoofMinVerticality)
	}
	if cc.WallMaxVerticality >= cc.RoofMinVerticality {
		return errors.Errorf(
			"wall_max_verticality (%f) must be less than roof_min_verticality (%f)",
			cc.WallMaxVerticality, cc.RoofMinVerticality,
		)
	}
	return nil
}

// ConvertAttributes changes an AttributeMap input into a ClassifierConfig.
func (cc *ClassifierConfig) ConvertAttributes(am utils.AttributeMap) error {
	if err := am.Decode(cc); err != nil {
		return err
	}
	return cc.CheckValid()
}

// ClassifySurface assigns a surface class to a single plane. A near-vertical
// plane is a wall. A near-horizontal plane is a roof only if its mean
// elevation is at least MinRoofHeight.
func ClassifySurface(plane pc.Plane, cfg ClassifierConfig) SurfaceClass {
	n := plane.Normal()
	norm := n.Norm()
	if norm == 0 {
		return SurfaceUnknown
	}
	verticality := math.Abs(n.Z / norm)
	switch {
	case verticality <= cfg.WallMaxVerticality:
		return SurfaceWall
	case verticality >= cfg.RoofMinVerticality && plane.Center().Z >= cfg.MinRoofHeight:
		return SurfaceRoof
	default:
		return SurfaceUnknown
	}
}

// Classification groups extracted planes by surface class.
type Classification struct {
	Walls     []pc.Plane
	Roofs     []pc.Plane
	Discarded []pc.Plane
}

// ClassifyPlanes applies the decision rules to every plane.
func ClassifyPlanes(planes []pc.Plane, cfg ClassifierConfig) (Classification, error) {
	if err := cfg.CheckValid(); err != nil {
		return Classification{}, err
	}
	var cl Classification
	for _, plane := range planes {
		switch ClassifySurface(plane, cfg) {
		case SurfaceWall:
			cl.Walls = append(cl.Walls, plane)
		case SurfaceRoof:
			cl.Roofs = append(cl.Roofs, plane)
		default:
			cl.Discarded = append(cl.Discarded, plane)
		}
	}
	return cl, nil
}
