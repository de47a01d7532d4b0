package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPointCloudBasic(t *testing.T) {
	pc := New()

	p0 := NewVector(0, 0, 0)
	d0 := NewValueData(5)
	test.That(t, pc.Set(p0, d0), test.ShouldBeNil)
	d, got := pc.At(0, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d, test.ShouldResemble, d0)

	_, got = pc.At(1, 0, 1)
	test.That(t, got, test.ShouldBeFalse)

	p1 := NewVector(1, 0, 1)
	d1 := NewValueData(17)
	test.That(t, pc.Set(p1, d1), test.ShouldBeNil)
	d, got = pc.At(1, 0, 1)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d, test.ShouldResemble, d1)

	p2 := NewVector(-1, -2, 1)
	d2 := NewValueData(81)
	test.That(t, pc.Set(p2, d2), test.ShouldBeNil)
	d, got = pc.At(-1, -2, 1)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, d, test.ShouldResemble, d2)

	test.That(t, pc.Size(), test.ShouldEqual, 3)

	count := 0
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 3)

	pc.Unset(1, 0, 1)
	_, got = pc.At(1, 0, 1)
	test.That(t, got, test.ShouldBeFalse)
	test.That(t, pc.Size(), test.ShouldEqual, 2)

	// setting an existing point overwrites rather than grows
	test.That(t, pc.Set(p0, NewValueData(6)), test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 2)
}

func TestPointCloudOutOfRange(t *testing.T) {
	pc := New()
	err := pc.Set(NewVector(1e20, 0, 0), nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "out of range")
	err = pc.Set(NewVector(0, -1e20, 0), nil)
	test.That(t, err, test.ShouldNotBeNil)
	err = pc.Set(NewVector(0, 0, 1e20), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPointCloudMetaData(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(0, 0, 0), NewBasicData()), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(4, -2, 1), NewBasicData()), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(-3, 5, 7), NewBasicData()), test.ShouldBeNil)

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -3)
	test.That(t, meta.MaxX, test.ShouldEqual, 4)
	test.That(t, meta.MinY, test.ShouldEqual, -2)
	test.That(t, meta.MaxY, test.ShouldEqual, 5)
	test.That(t, meta.MinZ, test.ShouldEqual, 0)
	test.That(t, meta.MaxZ, test.ShouldEqual, 7)
	test.That(t, meta.HasColor, test.ShouldBeFalse)
	test.That(t, meta.HasValue, test.ShouldBeFalse)

	test.That(t, pc.Set(NewVector(1, 1, 1), NewValueData(1)), test.ShouldBeNil)
	test.That(t, pc.MetaData().HasValue, test.ShouldBeTrue)
}

func TestPointCloudIterateBatching(t *testing.T) {
	pc := New()
	for i := 0; i < 10; i++ {
		test.That(t, pc.Set(NewVector(float64(i), 0, 0), NewBasicData()), test.ShouldBeNil)
	}

	total := 0
	for batch := 0; batch < 3; batch++ {
		pc.Iterate(3, batch, func(p r3.Vector, d Data) bool {
			total++
			return true
		})
	}
	test.That(t, total, test.ShouldEqual, 10)
}
