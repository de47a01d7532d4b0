package pointcloud

import (
	"testing"

	"go.viam.com/test"
)

func TestKNearestNeighbors(t *testing.T) {
	cloud := New()
	test.That(t, cloud.Set(NewVector(0, 0, 0), NewValueData(1)), test.ShouldBeNil)
	test.That(t, cloud.Set(NewVector(1, 0, 0), NewValueData(2)), test.ShouldBeNil)
	test.That(t, cloud.Set(NewVector(2, 0, 0), NewValueData(3)), test.ShouldBeNil)
	test.That(t, cloud.Set(NewVector(5, 0, 0), NewValueData(4)), test.ShouldBeNil)

	tree := NewKDTree(cloud)

	nearest := tree.KNearestNeighbors(NewVector(0, 0, 0), 2, false)
	test.That(t, nearest, test.ShouldHaveLength, 2)
	test.That(t, nearest[0].P, test.ShouldResemble, NewVector(1, 0, 0))
	test.That(t, nearest[1].P, test.ShouldResemble, NewVector(2, 0, 0))

	nearest = tree.KNearestNeighbors(NewVector(0, 0, 0), 1, true)
	test.That(t, nearest, test.ShouldHaveLength, 1)
	test.That(t, nearest[0].P, test.ShouldResemble, NewVector(0, 0, 0))
	test.That(t, nearest[0].D.Value(), test.ShouldEqual, 1)

	// asking for more neighbors than the cloud holds returns what exists
	nearest = tree.KNearestNeighbors(NewVector(0, 0, 0), 10, false)
	test.That(t, nearest, test.ShouldHaveLength, 3)

	// query point not in the cloud
	nearest = tree.KNearestNeighbors(NewVector(4.9, 0, 0), 1, false)
	test.That(t, nearest, test.ShouldHaveLength, 1)
	test.That(t, nearest[0].P, test.ShouldResemble, NewVector(5, 0, 0))
}
