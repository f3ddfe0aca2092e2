package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/deid-reconcile/internal/application/dataset"
	"github.com/turtacn/deid-reconcile/internal/config"
	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// BuildRequest describes one training-set build.  Reports are read from
// ReportDir as <document id>.txt.
type BuildRequest struct {
	Annotations string
	ReportDir   string
	// Output is the base TSV path; _train and _test are inserted before the
	// extension.
	Output  string
	Mode    dataset.Mode
	Augment bool
}

// BuildResult summarizes a build.
type BuildResult struct {
	TrainPath      string `json:"train_path"`
	TestPath       string `json:"test_path"`
	TrainDocs      int    `json:"train_docs"`
	TestDocs       int    `json:"test_docs"`
	TrainSamples   int    `json:"train_samples"`
	TestSamples    int    `json:"test_samples"`
	SkippedRows    int    `json:"skipped_rows"`
	MissingReports int    `json:"missing_reports"`
}

// SegmentRequest describes inference segmentation of unlabelled reports.
type SegmentRequest struct {
	// Patterns select report files; the document id is the base name without
	// extension.
	Patterns []string
	// Output is the base TSV path; _original, _spliced and _sliced are
	// inserted before the extension.
	Output string
}

// SegmentResult maps each mode to its output path and window count.
type SegmentResult struct {
	Reports int               `json:"reports"`
	Paths   map[string]string `json:"paths"`
	Windows map[string]int    `json:"windows"`
}

// NormPairsRequest describes a normalization training-set build.
type NormPairsRequest struct {
	Annotations string
	Output      string
	// Forged is the budget per forged generator.
	Forged int
}

// ─────────────────────────────────────────────────────────────────────────────
// DatasetRunner
// ─────────────────────────────────────────────────────────────────────────────

// DatasetRunner produces training and inference files.
type DatasetRunner struct {
	cfg     config.DatasetConfig
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewDatasetRunner creates a runner for cfg.
func NewDatasetRunner(cfg config.DatasetConfig, logger logging.Logger, metrics *prometheus.PipelineMetrics) *DatasetRunner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	return &DatasetRunner{cfg: cfg, logger: logger.Named("dataset"), metrics: metrics}
}

// augmentCounts maps the configuration onto generator budgets.  An all-zero
// configuration selects the default budgets.
func (r *DatasetRunner) augmentCounts() dataset.AugmentCounts {
	a := r.cfg.Augment
	counts := dataset.AugmentCounts{
		Phone:         a.Phone,
		LocationOther: a.POBox,
		Duration:      a.Duration,
		Set:           a.Set,
		Organization:  a.Organization,
		Country:       a.Country,
		Noise:         a.Noise,
	}
	if !counts.Enabled() && !counts.Noise {
		return dataset.DefaultAugmentCounts
	}
	return counts
}

// Build splits the annotated documents into train and test sets and writes
// the samples of mode for each.
func (r *DatasetRunner) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	anns, skipped, err := dataset.LoadAnnotationsFile(req.Annotations)
	if err != nil {
		return nil, err
	}
	if anns.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInputMalformed, "annotation file has no usable rows").
			WithDetail("path=" + req.Annotations)
	}

	var augmenter *dataset.Augmenter
	if req.Augment {
		augmenter = dataset.NewAugmenter(r.cfg.Seed, r.augmentCounts())
	}
	slicer := dataset.NewSlicer(dataset.SlicerConfig{MaxLen: r.cfg.MaxLen, SliceOverlap: r.cfg.SliceOverlap},
		augmenter, r.logger, r.metrics)

	train, test := dataset.SplitDocuments(anns.Keys(), r.cfg.TestRatio, r.cfg.Seed)
	res := &BuildResult{
		TrainPath:   suffixed(req.Output, "train"),
		TestPath:    suffixed(req.Output, "test"),
		TrainDocs:   len(train),
		TestDocs:    len(test),
		SkippedRows: skipped,
	}

	build := func(ids []string) ([]phi.Window, error) {
		var out []phi.Window
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeTimeout, "dataset build cancelled")
			}
			article, err := dataset.ReadArticle(filepath.Join(req.ReportDir, id+".txt"))
			if err != nil {
				res.MissingReports++
				r.logger.Warn("report not readable", logging.String(logging.FieldDocID, id), logging.Err(err))
				continue
			}
			recs, _ := anns.Get(id)
			units := dataset.BuildSequencePairs(id, article, recs)
			out = append(out, slicer.ConcatenateAndSlice(units, req.Mode)...)
		}
		return out, nil
	}

	trainSamples, err := build(train)
	if err != nil {
		return nil, err
	}
	testSamples, err := build(test)
	if err != nil {
		return nil, err
	}
	if err := writeFile(res.TrainPath, func(f *os.File) error { return dataset.WriteWindows(f, trainSamples) }); err != nil {
		return nil, err
	}
	if err := writeFile(res.TestPath, func(f *os.File) error { return dataset.WriteWindows(f, testSamples) }); err != nil {
		return nil, err
	}
	res.TrainSamples = len(trainSamples)
	res.TestSamples = len(testSamples)

	r.logger.Info("dataset built",
		logging.String("mode", string(req.Mode)),
		logging.Int("train_samples", res.TrainSamples),
		logging.Int("test_samples", res.TestSamples),
		logging.Int("missing_reports", res.MissingReports),
	)
	logging.LogOperationDuration(r.logger, "dataset_build", start)
	return res, nil
}

// Segment writes the inference windows of every matched report, one file
// per mode.
func (r *DatasetRunner) Segment(ctx context.Context, req SegmentRequest) (*SegmentResult, error) {
	start := time.Now()
	files, err := ExpandInputs(req.Patterns)
	if err != nil {
		return nil, err
	}

	all := make(map[dataset.Mode][]phi.Window, len(dataset.AllModes))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "segmentation cancelled")
		}
		article, err := dataset.ReadArticle(f)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		segs := dataset.SegmentReport(id, article, r.cfg.MaxLen, r.cfg.SliceOverlap)
		for _, m := range dataset.AllModes {
			all[m] = append(all[m], segs.ByMode(m)...)
		}
	}

	res := &SegmentResult{Reports: len(files), Paths: map[string]string{}, Windows: map[string]int{}}
	for _, m := range dataset.AllModes {
		path := suffixed(req.Output, string(m))
		windows := all[m]
		if err := writeFile(path, func(f *os.File) error { return dataset.WriteSegments(f, windows) }); err != nil {
			return nil, err
		}
		res.Paths[string(m)] = path
		res.Windows[string(m)] = len(windows)
		r.metrics.DatasetSamples.WithLabelValues("segment_" + string(m)).Add(float64(len(windows)))
	}
	logging.LogOperationDuration(r.logger, "dataset_segment", start)
	return res, nil
}

// NormPairs writes the normalization training rows.
func (r *DatasetRunner) NormPairs(_ context.Context, req NormPairsRequest) (int, error) {
	anns, _, err := dataset.LoadAnnotationsFile(req.Annotations)
	if err != nil {
		return 0, err
	}
	aug := dataset.NewAugmenter(r.cfg.Seed, r.augmentCounts())
	rows := aug.NormalizationDataset(anns, req.Forged)
	if err := writeFile(req.Output, func(f *os.File) error { return dataset.WriteRows(f, rows) }); err != nil {
		return 0, err
	}
	r.metrics.DatasetSamples.WithLabelValues("norm_pairs").Add(float64(len(rows)))
	r.logger.Info("normalization pairs written", logging.String(logging.FieldFile, req.Output), logging.Int("rows", len(rows)))
	return len(rows), nil
}

// suffixed inserts _suffix before the extension of path.
func suffixed(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext
}

// writeFile creates path and its parent directories and runs write on it.
func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create output directory").WithDetail("path=" + path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create output file").WithDetail("path=" + path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to close output file").WithDetail("path=" + path)
	}
	return nil
}

//Personal.AI order the ending
