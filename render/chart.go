package render

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/segmentation"
)

const (
	wallSeriesColor      = "#0000ff"
	roofSeriesColor      = "#ff0000"
	discardedSeriesColor = "#9e9e9e"
	leftoverSeriesColor  = "#d0d0d0"
)

func cloudChartData(cloud pc.PointCloud) []opts.Chart3DData {
	data := make([]opts.Chart3DData, 0, cloud.Size())
	cloud.Iterate(0, 0, func(pt r3.Vector, d pc.Data) bool {
		data = append(data, opts.Chart3DData{Value: []interface{}{pt.X, pt.Y, pt.Z}})
		return true
	})
	return data
}

func planesChartData(planes []pc.Plane) ([]opts.Chart3DData, error) {
	var data []opts.Chart3DData
	for _, plane := range planes {
		cloud, err := plane.PointCloud()
		if err != nil {
			return nil, err
		}
		data = append(data, cloudChartData(cloud)...)
	}
	return data, nil
}

// NewSurfaceChart builds an interactive 3D scatter of the classified
// surfaces, one series per class so the viewer legend can toggle them.
// leftover may be nil.
func NewSurfaceChart(cl segmentation.Classification, leftover pc.PointCloud, title string) (*charts.Scatter3D, error) {
	chart := charts.NewScatter3D()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	series := []struct {
		name   string
		planes []pc.Plane
		color  string
	}{
		{"walls", cl.Walls, wallSeriesColor},
		{"roofs", cl.Roofs, roofSeriesColor},
		{"discarded", cl.Discarded, discardedSeriesColor},
	}
	for _, s := range series {
		data, err := planesChartData(s.planes)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		chart.AddSeries(s.name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.color}))
	}
	if leftover != nil && leftover.Size() > 0 {
		chart.AddSeries("unsegmented", cloudChartData(leftover),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: leftoverSeriesColor}))
	}
	return chart, nil
}

// WriteHTMLFile renders the chart as a self-contained HTML page at the given
// path.
func WriteHTMLFile(chart *charts.Scatter3D, path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return chart.Render(f)
}

// Serve returns an HTTP handler that renders the classification as the 3D
// scatter page on every request.
func Serve(cl segmentation.Classification, leftover pc.PointCloud, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chart, err := NewSurfaceChart(cl, leftover, title)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to build chart: %v", err), http.StatusInternalServerError)
			return
		}
		var buf bytes.Buffer
		if err := chart.Render(&buf); err != nil {
			http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck
		w.Write(buf.Bytes())
	})
}
