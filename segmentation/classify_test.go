package segmentation

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	pc "github.com/opensensing/structseg/pointcloud"
)

func defaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		WallMaxVerticality: 0.3,
		RoofMinVerticality: 0.7,
		MinRoofHeight:      5,
	}
}

// patchPlane builds a small planar patch with the given equation, offset so
// its points (and hence center) sit at the given height.
func patchPlane(t *testing.T, equation [4]float64, height float64) pc.Plane {
	t.Helper()
	cloud := pc.New()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, cloud.Set(r3.Vector{X: float64(i), Y: float64(j), Z: height}, pc.NewBasicData()), test.ShouldBeNil)
		}
	}
	return pc.NewPlane(cloud, equation)
}

func TestClassifySurface(t *testing.T) {
	cfg := defaultClassifierConfig()

	// horizontal and high enough
	roof := patchPlane(t, [4]float64{0, 0, 1, -10}, 10)
	test.That(t, ClassifySurface(roof, cfg), test.ShouldEqual, SurfaceRoof)

	// horizontal but too low to be a roof
	slab := patchPlane(t, [4]float64{0, 0, 1, -1}, 1)
	test.That(t, ClassifySurface(slab, cfg), test.ShouldEqual, SurfaceUnknown)

	// vertical, height is irrelevant for walls
	wall := patchPlane(t, [4]float64{1, 0, 0, 0}, 2)
	test.That(t, ClassifySurface(wall, cfg), test.ShouldEqual, SurfaceWall)

	// flipped normal orientation does not change the class
	flippedRoof := patchPlane(t, [4]float64{0, 0, -1, 10}, 10)
	test.That(t, ClassifySurface(flippedRoof, cfg), test.ShouldEqual, SurfaceRoof)

	// a sloped surface matches neither rule
	slanted := patchPlane(t, [4]float64{0.8, 0, 0.6, -7}, 10)
	test.That(t, ClassifySurface(slanted, cfg), test.ShouldEqual, SurfaceUnknown)

	// degenerate plane
	test.That(t, ClassifySurface(pc.NewEmptyPlane(), cfg), test.ShouldEqual, SurfaceUnknown)
}

func TestClassifyPlanes(t *testing.T) {
	cfg := defaultClassifierConfig()
	planes := []pc.Plane{
		patchPlane(t, [4]float64{0, 0, 1, -10}, 10),
		patchPlane(t, [4]float64{1, 0, 0, 0}, 2),
		patchPlane(t, [4]float64{0, 1, 0, 0}, 6),
		patchPlane(t, [4]float64{0.8, 0, 0.6, -7}, 10),
	}

	cl, err := ClassifyPlanes(planes, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cl.Roofs, test.ShouldHaveLength, 1)
	test.That(t, cl.Walls, test.ShouldHaveLength, 2)
	test.That(t, cl.Discarded, test.ShouldHaveLength, 1)

	// labels are mutually exclusive and cover every plane
	test.That(t, len(cl.Roofs)+len(cl.Walls)+len(cl.Discarded), test.ShouldEqual, len(planes))

	// the same planes with the same thresholds classify identically
	again, err := ClassifyPlanes(planes, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, cl)
}

func TestClassifierConfigCheckValid(t *testing.T) {
	valid := defaultClassifierConfig()
	test.That(t, valid.CheckValid(), test.ShouldBeNil)

	cfg := valid
	cfg.WallMaxVerticality = 0
	err := cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "wall_max_verticality")

	cfg = valid
	cfg.RoofMinVerticality = 1.5
	err = cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "roof_min_verticality")

	cfg = valid
	cfg.WallMaxVerticality = 0.8
	err = cfg.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "must be less than")
}

func TestClassifierConfigConvertAttributes(t *testing.T) {
	cfg := &ClassifierConfig{}
	err := cfg.ConvertAttributes(map[string]interface{}{
		"wall_max_verticality": 0.3,
		"roof_min_verticality": 0.7,
		"min_roof_height":      5.0,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MinRoofHeight, test.ShouldEqual, 5.0)

	err = cfg.ConvertAttributes(map[string]interface{}{
		"wall_max_verticality": 0.9,
		"roof_min_verticality": 0.7,
	})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSurfaceClassString(t *testing.T) {
	test.That(t, SurfaceWall.String(), test.ShouldEqual, "wall")
	test.That(t, SurfaceRoof.String(), test.ShouldEqual, "roof")
	test.That(t, SurfaceUnknown.String(), test.ShouldEqual, "unknown")
}
