package pointcloud

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

var blue = color.NRGBA{0, 0, 255, 255}

func TestCloudCentroid(t *testing.T) {
	test.That(t, CloudCentroid(New()), test.ShouldResemble, r3.Vector{})
	test.That(t, CloudCentroid(nil), test.ShouldResemble, r3.Vector{})

	cloud := New()
	test.That(t, cloud.Set(NewVector(0, 0, 0), NewBasicData()), test.ShouldBeNil)
	test.That(t, cloud.Set(NewVector(3, 0, 0), NewBasicData()), test.ShouldBeNil)
	test.That(t, cloud.Set(NewVector(0, 3, 6), NewBasicData()), test.ShouldBeNil)
	test.That(t, CloudCentroid(cloud), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 2})
}

func TestMergePointClouds(t *testing.T) {
	cloud1 := New()
	test.That(t, cloud1.Set(NewVector(0, 0, 0), NewValueData(1)), test.ShouldBeNil)
	test.That(t, cloud1.Set(NewVector(1, 0, 0), NewValueData(2)), test.ShouldBeNil)
	cloud2 := New()
	test.That(t, cloud2.Set(NewVector(0, 1, 0), NewValueData(3)), test.ShouldBeNil)

	merged := New()
	test.That(t, MergePointClouds([]PointCloud{cloud1, cloud2}, merged), test.ShouldBeNil)
	test.That(t, merged.Size(), test.ShouldEqual, 3)
	d, got := merged.At(0, 1, 0)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d.Value(), test.ShouldEqual, 3)
}

func TestMergePointCloudsWithColor(t *testing.T) {
	cloud1 := New()
	test.That(t, cloud1.Set(NewVector(0, 0, 0), NewBasicData()), test.ShouldBeNil)
	test.That(t, cloud1.Set(NewVector(1, 0, 0), NewBasicData()), test.ShouldBeNil)
	cloud2 := New()
	test.That(t, cloud2.Set(NewVector(0, 1, 0), NewBasicData()), test.ShouldBeNil)

	merged := New()
	test.That(t, MergePointCloudsWithColor([]PointCloud{cloud1, cloud2}, merged), test.ShouldBeNil)
	test.That(t, merged.Size(), test.ShouldEqual, 3)
	test.That(t, merged.MetaData().HasColor, test.ShouldBeTrue)

	a, got := merged.At(0, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	b, got := merged.At(1, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	c, got := merged.At(0, 1, 0)
	test.That(t, got, test.ShouldBeTrue)

	// same cloud shares a color, different clouds get different ones
	test.That(t, a.Color(), test.ShouldResemble, b.Color())
	test.That(t, a.Color(), test.ShouldNotResemble, c.Color())
}

func TestPrunePointClouds(t *testing.T) {
	small := New()
	test.That(t, small.Set(NewVector(0, 0, 0), NewBasicData()), test.ShouldBeNil)
	big := New()
	for i := 0; i < 5; i++ {
		test.That(t, big.Set(NewVector(float64(i), 0, 0), NewBasicData()), test.ShouldBeNil)
	}

	pruned := PrunePointClouds([]PointCloud{small, big}, 3)
	test.That(t, pruned, test.ShouldHaveLength, 1)
	test.That(t, pruned[0].Size(), test.ShouldEqual, 5)
}

func TestCloudMatrix(t *testing.T) {
	m, header := CloudMatrix(New())
	test.That(t, m, test.ShouldBeNil)
	test.That(t, header, test.ShouldBeNil)

	cloud := New()
	test.That(t, cloud.Set(NewVector(1, 2, 3), NewBasicData()), test.ShouldBeNil)
	m, header = CloudMatrix(cloud)
	test.That(t, header, test.ShouldResemble, []CloudMatrixCol{CloudMatrixColX, CloudMatrixColY, CloudMatrixColZ})
	rows, cols := m.Dims()
	test.That(t, rows, test.ShouldEqual, 1)
	test.That(t, cols, test.ShouldEqual, 3)
	test.That(t, m.At(0, 0), test.ShouldEqual, 1)
	test.That(t, m.At(0, 2), test.ShouldEqual, 3)

	colored := New()
	test.That(t, colored.Set(NewVector(1, 2, 3), NewColoredData(blue)), test.ShouldBeNil)
	m, header = CloudMatrix(colored)
	test.That(t, header, test.ShouldHaveLength, 6)
	_, cols = m.Dims()
	test.That(t, cols, test.ShouldEqual, 6)
	test.That(t, m.At(0, 5), test.ShouldEqual, 255)
}
