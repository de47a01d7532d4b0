// Package pipeline chains the load, preprocess, segment and classify stages
// into one run over a building scan.
package pipeline

import (
	"context"
	"fmt"

	"github.com/edaniels/golog"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	pc "github.com/opensensing/structseg/pointcloud"
	"github.com/opensensing/structseg/segmentation"
	"github.com/opensensing/structseg/utils"
)

// PreprocessorConfig are the parameters of the noise filter and the voxel
// downsampling that run before segmentation.
type PreprocessorConfig struct {
	// MeanK is the number of nearest neighbors used for the per-point mean
	// distance in statistical outlier removal.
	MeanK int `json:"mean_k"`
	// StdDevThresh is the number of standard deviations above the global mean
	// distance past which a point is an outlier.
	StdDevThresh float64 `json:"std_dev_threshold"`
	// VoxelSize is the edge length of the downsampling voxels.
	VoxelSize float64 `json:"voxel_size"`
}

// CheckValid checks that the parameter inputs are valid.
func (pp *PreprocessorConfig) CheckValid() error {
	if pp.MeanK < 1 {
		return errors.Errorf("mean_k must be a positive int, got %d", pp.MeanK)
	}
	if pp.StdDevThresh <= 0 {
		return errors.Errorf("std_dev_threshold must be a positive float, got %f", pp.StdDevThresh)
	}
	if pp.VoxelSize <= 0 {
		return errors.Errorf("voxel_size must be a positive float, got %f", pp.VoxelSize)
	}
	return nil
}

// ConvertAttributes changes an AttributeMap input into a PreprocessorConfig.
func (pp *PreprocessorConfig) ConvertAttributes(am utils.AttributeMap) error {
	if err := am.Decode(pp); err != nil {
		return err
	}
	return pp.CheckValid()
}

// Config collects the parameters of every stage.
type Config struct {
	Preprocessor PreprocessorConfig            `json:"preprocessor"`
	Segmenter    segmentation.SegmenterConfig  `json:"segmenter"`
	Ransac       segmentation.RansacConfig     `json:"ransac"`
	Classifier   segmentation.ClassifierConfig `json:"classifier"`
}

// CheckValid checks that the parameter inputs of every stage are valid.
func (c *Config) CheckValid() error {
	if err := c.Preprocessor.CheckValid(); err != nil {
		return errors.Wrap(err, "error validating preprocessor config")
	}
	if err := c.Segmenter.CheckValid(); err != nil {
		return errors.Wrap(err, "error validating segmenter config")
	}
	if err := c.Ransac.CheckValid(); err != nil {
		return errors.Wrap(err, "error validating ransac config")
	}
	if err := c.Classifier.CheckValid(); err != nil {
		return errors.Wrap(err, "error validating classifier config")
	}
	return nil
}

// Result is the output of a pipeline run.
type Result struct {
	// Planes are all extracted planes, in extraction order.
	Planes []pc.Plane
	// Classification groups the planes into walls, roofs and discarded.
	Classification segmentation.Classification
	// Leftover are the points not belonging to any extracted plane.
	Leftover pc.PointCloud
}

type stageRecord struct {
	name   string
	before int
	after  int
}

// Pipeline runs the full pointcloud-to-surfaces sequence. A Pipeline is not
// safe for concurrent runs; its history belongs to the latest run.
type Pipeline struct {
	cfg     Config
	logger  golog.Logger
	history []stageRecord
}

// New validates the config and returns a ready pipeline.
func New(cfg Config, logger golog.Logger) (*Pipeline, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// track records a stage transformation for the run summary.
func (p *Pipeline) track(name string, before, after int) {
	p.history = append(p.history, stageRecord{name: name, before: before, after: after})
	p.logger.Debugf("%s: %d -> %d points", name, before, after)
}

// History returns one line per completed stage of the latest run.
func (p *Pipeline) History() []string {
	lines := make([]string, 0, len(p.history))
	for _, rec := range p.history {
		lines = append(lines, fmt.Sprintf("%s: %d -> %d points", rec.name, rec.before, rec.after))
	}
	return lines
}

// Run loads the scan at the given path and runs every stage on it.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	cloud, err := pc.NewFromFile(path, p.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading point cloud from %q", path)
	}
	p.logger.Infof("loaded %d points from %q", cloud.Size(), path)
	return p.RunCloud(ctx, cloud)
}

// RunCloud runs every stage on an already loaded cloud. Any stage error ends
// the run; there are no partial results.
func (p *Pipeline) RunCloud(ctx context.Context, cloud pc.PointCloud) (*Result, error) {
	p.history = p.history[:0]

	filter, err := pc.StatisticalOutlierFilter(p.cfg.Preprocessor.MeanK, p.cfg.Preprocessor.StdDevThresh)
	if err != nil {
		return nil, err
	}
	filtered := pc.New()
	if err := filter(cloud, filtered); err != nil {
		return nil, errors.Wrap(err, "error removing outliers")
	}
	p.track("remove outliers", cloud.Size(), filtered.Size())

	downsampled, err := pc.DownsampleByVoxel(filtered, p.cfg.Preprocessor.VoxelSize)
	if err != nil {
		return nil, errors.Wrap(err, "error downsampling")
	}
	p.track("voxel downsample", filtered.Size(), downsampled.Size())

	cropped, err := segmentation.CropToFootprint(downsampled, p.cfg.Segmenter.Polygon())
	if err != nil {
		return nil, errors.Wrap(err, "error cropping to footprint")
	}
	p.track("crop to footprint", downsampled.Size(), cropped.Size())

	building, err := segmentation.RemoveGround(cropped, p.cfg.Segmenter.GroundZThresh)
	if err != nil {
		return nil, errors.Wrap(err, "error removing ground")
	}
	p.track("remove ground", cropped.Size(), building.Size())

	planes, leftover, err := segmentation.FindPlanes(ctx, building, p.cfg.Ransac)
	if err != nil {
		return nil, errors.Wrap(err, "error finding planes")
	}
	p.track("extract planes", building.Size(), building.Size()-leftover.Size())

	classification, err := segmentation.ClassifyPlanes(planes, p.cfg.Classifier)
	if err != nil {
		return nil, errors.Wrap(err, "error classifying planes")
	}

	p.logSummary(planes, classification)
	return &Result{
		Planes:         planes,
		Classification: classification,
		Leftover:       leftover,
	}, nil
}

// logSummary renders the stage history and the per-plane classification as
// tables on the run logger.
func (p *Pipeline) logSummary(planes []pc.Plane, cl segmentation.Classification) {
	stages := table.NewWriter()
	stages.AppendHeader(table.Row{"Stage", "Points In", "Points Out"})
	for _, rec := range p.history {
		stages.AppendRow(table.Row{rec.name, rec.before, rec.after})
	}
	p.logger.Infof("stage summary:\n%s", stages.Render())

	classOf := make(map[pc.Plane]segmentation.SurfaceClass, len(planes))
	for _, plane := range cl.Walls {
		classOf[plane] = segmentation.SurfaceWall
	}
	for _, plane := range cl.Roofs {
		classOf[plane] = segmentation.SurfaceRoof
	}

	surfaces := table.NewWriter()
	surfaces.AppendHeader(table.Row{"Plane", "Class", "Points", "Normal Z", "Mean Height"})
	for i, plane := range planes {
		nPoints := 0
		if cloud, err := plane.PointCloud(); err == nil {
			nPoints = cloud.Size()
		}
		class := segmentation.SurfaceUnknown
		if c, ok := classOf[plane]; ok {
			class = c
		}
		surfaces.AppendRow(table.Row{
			i,
			class.String(),
			nPoints,
			fmt.Sprintf("%.3f", plane.Normal().Z),
			fmt.Sprintf("%.2f", plane.Center().Z),
		})
	}
	p.logger.Infof("classified %d walls, %d roofs, %d discarded:\n%s",
		len(cl.Walls), len(cl.Roofs), len(cl.Discarded), surfaces.Render())
}
