// Package render turns classification results into colored clouds, PNG
// snapshots and interactive 3D scatter pages.
package render

import (
	"image/color"
	"io"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/segmentation"
)

// Fixed class colors. Walls are blue, roofs red, anything else gray.
var (
	WallColor      = color.NRGBA{0, 0, 255, 255}
	RoofColor      = color.NRGBA{255, 0, 0, 255}
	DiscardedColor = color.NRGBA{128, 128, 128, 255}
)

// ColorizeClassification merges the classified planes into one cloud with
// every point colored by its surface class. Discarded planes are included in
// gray so the snapshot still shows the whole structure.
func ColorizeClassification(cl segmentation.Classification) (pc.PointCloud, error) {
	colored := pc.New()
	groups := []struct {
		planes []pc.Plane
		color  color.NRGBA
	}{
		{cl.Walls, WallColor},
		{cl.Roofs, RoofColor},
		{cl.Discarded, DiscardedColor},
	}
	for _, group := range groups {
		for _, plane := range group.planes {
			cloud, err := plane.PointCloud()
			if err != nil {
				return nil, err
			}
			var serr error
			cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
				serr = colored.Set(pt, pc.NewColoredData(group.color))
				return serr == nil
			})
			if serr != nil {
				return nil, serr
			}
		}
	}
	return colored, nil
}

// Projection selects the axis pair of an orthographic PNG snapshot.
type Projection int

// The available orthographic projections.
const (
	// ProjectionTop looks down the z axis, drawing (x, y).
	ProjectionTop Projection = iota
	// ProjectionFront looks down the y axis, drawing (x, z).
	ProjectionFront
)

func (p Projection) axes(pt r3.Vector) (float64, float64) {
	if p == ProjectionTop {
		return pt.X, pt.Y
	}
	return pt.X, pt.Z
}

func (p Projection) bounds(meta pc.MetaData) (minU, minV, maxU, maxV float64) {
	if p == ProjectionTop {
		return meta.MinX, meta.MinY, meta.MaxX, meta.MaxY
	}
	return meta.MinX, meta.MinZ, meta.MaxX, meta.MaxZ
}

// RenderPNG draws an orthographic snapshot of the cloud on a white canvas
// and writes it as PNG. Points keep their cloud colors; uncolored points are
// drawn gray.
func RenderPNG(cloud pc.PointCloud, proj Projection, width, height int, out io.Writer) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("image dimensions must be positive, got %dx%d", width, height)
	}
	if cloud.Size() == 0 {
		return errors.New("cannot render an empty point cloud")
	}
	minU, minV, maxU, maxV := proj.bounds(cloud.MetaData())
	spanU := maxU - minU
	spanV := maxV - minV
	if spanU == 0 {
		spanU = 1
	}
	if spanV == 0 {
		spanV = 1
	}
	const margin = 10.
	scaleU := (float64(width) - 2*margin) / spanU
	scaleV := (float64(height) - 2*margin) / spanV
	if scaleV < scaleU {
		scaleU = scaleV
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
		u, v := proj.axes(pt)
		x := margin + (u-minU)*scaleU
		// image y grows downward
		y := float64(height) - margin - (v-minV)*scaleU
		if d != nil && d.HasColor() {
			r, g, b := d.RGB255()
			dc.SetRGBA255(int(r), int(g), int(b), 255)
		} else {
			dc.SetRGBA255(128, 128, 128, 255)
		}
		dc.DrawPoint(x, y, 1)
		dc.Fill()
		return true
	})
	return dc.EncodePNG(out)
}

// WritePNGFile renders the snapshot into the file at the given path.
func WritePNGFile(cloud pc.PointCloud, proj Projection, width, height int, path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return RenderPNG(cloud, proj, width, height, f)
}
