// Package main is the structseg CLI, a LiDAR building-surface segmentation
// tool.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/pipeline"
	"github.com/opensensing/structseg/render"
	"github.com/opensensing/structseg/segmentation"
)

const (
	// Flags.
	flagFile      = "file"
	flagOut       = "out"
	flagHTML      = "html"
	flagPNG       = "png"
	flagServe     = "serve"
	flagFootprint = "footprint"

	flagMeanK         = "mean-k"
	flagStdRatio      = "std-ratio"
	flagVoxelSize     = "voxel-size"
	flagGroundThresh  = "ground-threshold"
	flagDistThresh    = "distance-threshold"
	flagIterations    = "iterations"
	flagMinInliers    = "min-inliers"
	flagMaxPlanes     = "max-planes"
	flagMergeSim      = "merge-similarity"
	flagMergeDist     = "merge-distance"
	flagWallMaxVert   = "wall-max-verticality"
	flagRoofMinVert   = "roof-min-verticality"
	flagMinRoofHeight = "min-roof-height"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "structseg",
		Usage: "segment and classify building surfaces in LiDAR point clouds",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("structseg")
			} else {
				logger = zap.NewNop().Sugar()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "classify",
				Usage: "run the full pipeline on a scan and report walls and roofs",
				UsageText: fmt.Sprintf(
					"structseg classify <%s> [%s] [%s] [%s] [%s] [other options]",
					flagFile, flagFootprint, flagHTML, flagPNG, flagOut),
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagFile,
						Required: true,
						Usage:    "point cloud to classify (las, pcd, ply, xyz)",
					},
					&cli.StringFlag{
						Name:  flagFootprint,
						Usage: "building footprint as `X,Y;X,Y;...` vertices; defaults to the scan's bounding rectangle",
					},
					&cli.IntFlag{
						Name:  flagMeanK,
						Value: 10,
						Usage: "neighbors per point for outlier removal",
					},
					&cli.Float64Flag{
						Name:  flagStdRatio,
						Value: 3.0,
						Usage: "standard deviation multiplier for outlier removal",
					},
					&cli.Float64Flag{
						Name:  flagVoxelSize,
						Value: 0.2,
						Usage: "voxel edge length for downsampling",
					},
					&cli.Float64Flag{
						Name:  flagGroundThresh,
						Value: 0.5,
						Usage: "points at or below this elevation are removed as ground",
					},
					&cli.Float64Flag{
						Name:  flagDistThresh,
						Value: 0.1,
						Usage: "max distance of an inlier to its plane",
					},
					&cli.IntFlag{
						Name:  flagIterations,
						Value: 1000,
						Usage: "ransac iterations per plane",
					},
					&cli.IntFlag{
						Name:  flagMinInliers,
						Value: 500,
						Usage: "minimum points for a plane to be kept",
					},
					&cli.IntFlag{
						Name:  flagMaxPlanes,
						Value: 20,
						Usage: "maximum number of planes to extract",
					},
					&cli.Float64Flag{
						Name:  flagMergeSim,
						Value: 0.95,
						Usage: "normal dot product above which nearby planes merge",
					},
					&cli.Float64Flag{
						Name:  flagMergeDist,
						Value: 5.0,
						Usage: "max center distance for merging planes",
					},
					&cli.Float64Flag{
						Name:  flagWallMaxVert,
						Value: 0.3,
						Usage: "max |normal z| for a wall",
					},
					&cli.Float64Flag{
						Name:  flagRoofMinVert,
						Value: 0.7,
						Usage: "min |normal z| for a roof",
					},
					&cli.Float64Flag{
						Name:  flagMinRoofHeight,
						Value: 5.0,
						Usage: "min mean elevation for a horizontal plane to be a roof",
					},
					&cli.PathFlag{
						Name:  flagOut,
						Usage: "write the colored classification cloud here (las or pcd)",
					},
					&cli.PathFlag{
						Name:  flagHTML,
						Usage: "write an interactive 3D scatter page here",
					},
					&cli.PathFlag{
						Name:  flagPNG,
						Usage: "write a top-down PNG snapshot here",
					},
					&cli.StringFlag{
						Name:  flagServe,
						Usage: "serve the 3D scatter page on this address (e.g. :8080)",
					},
				},
				Action: func(c *cli.Context) error {
					return classifyCommand(c, logger)
				},
			},
			{
				Name:      "info",
				Usage:     "print a summary of a point cloud file",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return errors.New("file argument required")
					}
					return infoCommand(c, path, logger)
				},
			},
			{
				Name:      "convert",
				Usage:     "read a point cloud in one format and write it in another",
				UsageText: fmt.Sprintf("structseg convert <%s> <%s>", flagFile, flagOut),
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagFile,
						Required: true,
						Usage:    "input point cloud (las, pcd, ply, xyz)",
					},
					&cli.PathFlag{
						Name:     flagOut,
						Required: true,
						Usage:    "output point cloud (las, pcd, xyz)",
					},
				},
				Action: func(c *cli.Context) error {
					cloud, err := pc.NewFromFile(c.Path(flagFile), logger)
					if err != nil {
						return err
					}
					return pc.WriteToFile(cloud, c.Path(flagOut))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// parseFootprint parses "x,y;x,y;..." into vertex pairs.
func parseFootprint(s string) ([][]float64, error) {
	var vertices [][]float64
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		coords := strings.Split(part, ",")
		if len(coords) != 2 {
			return nil, errors.Errorf("footprint vertex %q must be X,Y", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(coords[0]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing footprint vertex %q", part)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(coords[1]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing footprint vertex %q", part)
		}
		vertices = append(vertices, []float64{x, y})
	}
	return vertices, nil
}

// boundingFootprint is the scan's bounding rectangle, used when no footprint
// is given so the crop stage keeps everything. Padded so boundary points do
// not land exactly on a polygon edge.
func boundingFootprint(cloud pc.PointCloud) [][]float64 {
	meta := cloud.MetaData()
	return [][]float64{
		{meta.MinX - 1, meta.MinY - 1},
		{meta.MaxX + 1, meta.MinY - 1},
		{meta.MaxX + 1, meta.MaxY + 1},
		{meta.MinX - 1, meta.MaxY + 1},
	}
}

func classifyCommand(c *cli.Context, logger golog.Logger) error {
	cloud, err := pc.NewFromFile(c.Path(flagFile), logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "loaded %d points from %q\n", cloud.Size(), c.Path(flagFile))

	footprint := boundingFootprint(cloud)
	if fpStr := c.String(flagFootprint); fpStr != "" {
		footprint, err = parseFootprint(fpStr)
		if err != nil {
			return err
		}
	}

	cfg := pipeline.Config{
		Preprocessor: pipeline.PreprocessorConfig{
			MeanK:        c.Int(flagMeanK),
			StdDevThresh: c.Float64(flagStdRatio),
			VoxelSize:    c.Float64(flagVoxelSize),
		},
		Segmenter: segmentation.SegmenterConfig{
			Footprint:     footprint,
			GroundZThresh: c.Float64(flagGroundThresh),
		},
		Ransac: segmentation.RansacConfig{
			DistanceThresh:        c.Float64(flagDistThresh),
			NIterations:           c.Int(flagIterations),
			MinInliers:            c.Int(flagMinInliers),
			MaxPlanes:             c.Int(flagMaxPlanes),
			MergeNormalSimilarity: c.Float64(flagMergeSim),
			MergeCenterDistance:   c.Float64(flagMergeDist),
		},
		Classifier: segmentation.ClassifierConfig{
			WallMaxVerticality: c.Float64(flagWallMaxVert),
			RoofMinVerticality: c.Float64(flagRoofMinVert),
			MinRoofHeight:      c.Float64(flagMinRoofHeight),
		},
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}
	result, err := p.RunCloud(c.Context, cloud)
	if err != nil {
		return err
	}

	for _, line := range p.History() {
		fmt.Fprintln(c.App.Writer, line)
	}
	cl := result.Classification
	fmt.Fprintf(c.App.Writer, "found %d planes: %d walls, %d roofs, %d discarded\n",
		len(result.Planes), len(cl.Walls), len(cl.Roofs), len(cl.Discarded))

	if out := c.Path(flagOut); out != "" {
		colored, err := render.ColorizeClassification(cl)
		if err != nil {
			return err
		}
		if err := pc.WriteToFile(colored, out); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote colored cloud to %q\n", out)
	}
	if png := c.Path(flagPNG); png != "" {
		colored, err := render.ColorizeClassification(cl)
		if err != nil {
			return err
		}
		if err := render.WritePNGFile(colored, render.ProjectionFront, 1200, 800, png); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote snapshot to %q\n", png)
	}
	if htmlPath := c.Path(flagHTML); htmlPath != "" {
		chart, err := render.NewSurfaceChart(cl, result.Leftover, "building surfaces")
		if err != nil {
			return err
		}
		if err := render.WriteHTMLFile(chart, htmlPath); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote 3D viewer to %q\n", htmlPath)
	}
	if addr := c.String(flagServe); addr != "" {
		fmt.Fprintf(c.App.Writer, "serving 3D viewer on %s\n", addr)
		//nolint:gosec
		return http.ListenAndServe(addr, render.Serve(cl, result.Leftover, "building surfaces"))
	}
	return nil
}

func infoCommand(c *cli.Context, path string, logger golog.Logger) error {
	cloud, err := pc.NewFromFile(path, logger)
	if err != nil {
		return err
	}
	meta := cloud.MetaData()
	tw := table.NewWriter()
	tw.AppendRows([]table.Row{
		{"points", cloud.Size()},
		{"has color", meta.HasColor},
		{"has value", meta.HasValue},
		{"x range", fmt.Sprintf("%.3f to %.3f", meta.MinX, meta.MaxX)},
		{"y range", fmt.Sprintf("%.3f to %.3f", meta.MinY, meta.MaxY)},
		{"z range", fmt.Sprintf("%.3f to %.3f", meta.MinZ, meta.MaxZ)},
	})
	fmt.Fprintf(c.App.Writer, "%s\n%s\n", path, tw.Render())
	return nil
}
