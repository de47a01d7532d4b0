package render

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/segmentation"
)

func testClassification(t *testing.T) segmentation.Classification {
	t.Helper()
	wallCloud := pc.New()
	test.That(t, wallCloud.Set(r3.Vector{X: 0, Y: 0, Z: 1}, pc.NewBasicData()), test.ShouldBeNil)
	test.That(t, wallCloud.Set(r3.Vector{X: 0, Y: 1, Z: 2}, pc.NewBasicData()), test.ShouldBeNil)
	roofCloud := pc.New()
	test.That(t, roofCloud.Set(r3.Vector{X: 1, Y: 1, Z: 10}, pc.NewBasicData()), test.ShouldBeNil)
	test.That(t, roofCloud.Set(r3.Vector{X: 2, Y: 1, Z: 10}, pc.NewBasicData()), test.ShouldBeNil)

	return segmentation.Classification{
		Walls: []pc.Plane{pc.NewPlane(wallCloud, [4]float64{1, 0, 0, 0})},
		Roofs: []pc.Plane{pc.NewPlane(roofCloud, [4]float64{0, 0, 1, -10})},
	}
}

func TestColorizeClassification(t *testing.T) {
	colored, err := ColorizeClassification(testClassification(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, colored.Size(), test.ShouldEqual, 4)
	test.That(t, colored.MetaData().HasColor, test.ShouldBeTrue)

	d, found := colored.At(0, 0, 1)
	test.That(t, found, test.ShouldBeTrue)
	r, g, b := d.RGB255()
	test.That(t, [3]uint8{r, g, b}, test.ShouldResemble, [3]uint8{0, 0, 255})

	d, found = colored.At(1, 1, 10)
	test.That(t, found, test.ShouldBeTrue)
	r, g, b = d.RGB255()
	test.That(t, [3]uint8{r, g, b}, test.ShouldResemble, [3]uint8{255, 0, 0})
}

func TestRenderPNG(t *testing.T) {
	colored, err := ColorizeClassification(testClassification(t))
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, RenderPNG(colored, ProjectionFront, 200, 100, &buf), test.ShouldBeNil)

	img, err := png.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	bounds := img.Bounds()
	test.That(t, bounds.Dx(), test.ShouldEqual, 200)
	test.That(t, bounds.Dy(), test.ShouldEqual, 100)
}

func TestRenderPNGErrors(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPNG(pc.New(), ProjectionTop, 100, 100, &buf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "empty point cloud")

	cloud := pc.New()
	test.That(t, cloud.Set(r3.Vector{X: 1}, pc.NewBasicData()), test.ShouldBeNil)
	err = RenderPNG(cloud, ProjectionTop, 0, 100, &buf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "dimensions must be positive")
}

func TestSurfaceChart(t *testing.T) {
	leftover := pc.New()
	test.That(t, leftover.Set(r3.Vector{X: 5, Y: 5, Z: 5}, pc.NewBasicData()), test.ShouldBeNil)

	chart, err := NewSurfaceChart(testClassification(t), leftover, "test building")
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, chart.Render(&buf), test.ShouldBeNil)
	html := buf.String()
	test.That(t, html, test.ShouldContainSubstring, "walls")
	test.That(t, html, test.ShouldContainSubstring, "roofs")
	test.That(t, html, test.ShouldContainSubstring, "unsegmented")
	test.That(t, html, test.ShouldContainSubstring, "test building")
}

func TestServe(t *testing.T) {
	handler := Serve(testClassification(t), nil, "served")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, rec.Header().Get("Content-Type"), test.ShouldContainSubstring, "text/html")
	test.That(t, rec.Body.String(), test.ShouldContainSubstring, "roofs")
}
