package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestAttributeMapGetters(t *testing.T) {
	am := AttributeMap{
		"size":    0.2,
		"count":   10,
		"name":    "roof",
		"enabled": true,
	}

	test.That(t, am.Has("size"), test.ShouldBeTrue)
	test.That(t, am.Has("missing"), test.ShouldBeFalse)

	test.That(t, am.Float64("size", 1.0), test.ShouldEqual, 0.2)
	test.That(t, am.Float64("count", 1.0), test.ShouldEqual, 10.0)
	test.That(t, am.Float64("missing", 1.0), test.ShouldEqual, 1.0)

	test.That(t, am.Int("count", 0), test.ShouldEqual, 10)
	test.That(t, am.Int("size", 7), test.ShouldEqual, 0)
	test.That(t, am.Int("missing", 7), test.ShouldEqual, 7)

	test.That(t, am.String("name"), test.ShouldEqual, "roof")
	test.That(t, am.String("count"), test.ShouldEqual, "")

	test.That(t, am.Bool("enabled", false), test.ShouldBeTrue)
	test.That(t, am.Bool("missing", true), test.ShouldBeTrue)
}

func TestAttributeMapDecode(t *testing.T) {
	type target struct {
		Size  float64 `json:"voxel_size"`
		Count int     `json:"count"`
	}
	var got target
	am := AttributeMap{"voxel_size": 0.2, "count": 10}
	test.That(t, am.Decode(&got), test.ShouldBeNil)
	test.That(t, got.Size, test.ShouldEqual, 0.2)
	test.That(t, got.Count, test.ShouldEqual, 10)
}
