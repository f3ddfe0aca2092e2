// Package pipeline orchestrates corpus-level runs: annotate reconciles model
// predictions into one answer file and fans it out to the configured sinks,
// evaluate scores an answer file against ground truth and the dataset runner
// produces training and inference TSVs.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/storage/minio"
	"github.com/turtacn/deid-reconcile/internal/intelligence/phi_extractor"
	"github.com/turtacn/deid-reconcile/internal/intelligence/vote"
	"github.com/turtacn/deid-reconcile/pkg/errors"
	"github.com/turtacn/deid-reconcile/pkg/types/common"
)

// extractChunk is the number of windows extracted between progress updates.
const extractChunk = 256

// ─────────────────────────────────────────────────────────────────────────────
// Collaborators
// ─────────────────────────────────────────────────────────────────────────────

// RecordSink receives the finalized records of a run.
type RecordSink interface {
	Name() string
	WriteRecords(ctx context.Context, runID string, records []phi.Record) error
}

// ArtifactUploader stores run output files.
type ArtifactUploader interface {
	UploadFiles(ctx context.Context, runID string, files []string) ([]minio.ObjectRef, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// DTOs
// ─────────────────────────────────────────────────────────────────────────────

// AnnotateRequest names the inputs and outputs of one annotate run.
type AnnotateRequest struct {
	// Patterns are prediction files or doublestar globs.
	Patterns []string
	// Output receives the finalized records.
	Output string
	// PoolDump, when set, receives the candidate pool as JSON.
	PoolDump string
}

// AnnotateResult summarizes one annotate run.
type AnnotateResult struct {
	RunID        string            `json:"run_id"`
	Files        []string          `json:"files"`
	Windows      int               `json:"windows"`
	SkippedLines int               `json:"skipped_lines"`
	Mentions     int               `json:"mentions"`
	Finalized    int               `json:"finalized"`
	Groups       int               `json:"groups"`
	Ties         int               `json:"ties"`
	Sinks        []string          `json:"sinks,omitempty"`
	Uploaded     []minio.ObjectRef `json:"uploaded,omitempty"`
	Duration     time.Duration     `json:"duration"`
	Vote         *vote.Result      `json:"-"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Annotator
// ─────────────────────────────────────────────────────────────────────────────

// Annotator runs extraction, voting and delivery.
type Annotator struct {
	extractor  phi_extractor.SpanExtractor
	aggregator *vote.Aggregator
	sinks      []RecordSink
	uploader   ArtifactUploader
	progress   io.Writer
	newRunID   func() string
	logger     logging.Logger
	metrics    *prometheus.PipelineMetrics
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithSinks appends record sinks.
func WithSinks(sinks ...RecordSink) AnnotatorOption {
	return func(a *Annotator) { a.sinks = append(a.sinks, sinks...) }
}

// WithUploader uploads the answer file and pool dump after delivery.
func WithUploader(u ArtifactUploader) AnnotatorOption {
	return func(a *Annotator) { a.uploader = u }
}

// WithProgress renders a progress bar on w.
func WithProgress(w io.Writer) AnnotatorOption {
	return func(a *Annotator) { a.progress = w }
}

// WithRunID overrides run id generation.
func WithRunID(f func() string) AnnotatorOption {
	return func(a *Annotator) { a.newRunID = f }
}

// NewAnnotator wires an Annotator.  A nil logger or metrics value is replaced
// by a no-op implementation.
func NewAnnotator(extractor phi_extractor.SpanExtractor, aggregator *vote.Aggregator, logger logging.Logger, metrics *prometheus.PipelineMetrics, opts ...AnnotatorOption) *Annotator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	a := &Annotator{
		extractor:  extractor,
		aggregator: aggregator,
		newRunID:   func() string { return string(common.NewID()) },
		logger:     logger.Named("annotate"),
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one annotate pass.  The answer file is always written before
// any sink is contacted; a sink failure is returned after every sink and the
// upload were attempted.
func (a *Annotator) Run(ctx context.Context, req AnnotateRequest) (*AnnotateResult, error) {
	start := time.Now()
	res := &AnnotateResult{RunID: a.newRunID()}
	log := a.logger.With(logging.String(logging.FieldRunID, res.RunID))

	files, err := ExpandInputs(req.Patterns)
	if err != nil {
		return nil, err
	}
	res.Files = files

	// 1. Read every prediction window.
	var windows []phi.Window
	for _, f := range files {
		ws, skipped, err := readWindows(f, log)
		if err != nil {
			return nil, err
		}
		windows = append(windows, ws...)
		res.SkippedLines += skipped
		a.metrics.WindowsProcessed.WithLabelValues("ok").Add(float64(len(ws)))
		a.metrics.WindowsProcessed.WithLabelValues("skipped").Add(float64(skipped))
		log.Debug("prediction file read", logging.String(logging.FieldFile, f), logging.Int("windows", len(ws)))
	}
	res.Windows = len(windows)

	// 2. Extract mentions.
	mentions, err := a.extract(ctx, windows)
	if err != nil {
		return nil, err
	}
	res.Mentions = len(mentions)

	// 3. Vote.
	timer := prometheus.NewTimer(a.metrics.ExtractionDuration.WithLabelValues("vote"))
	result := a.aggregator.AggregateMentions(mentions)
	timer.ObserveDuration()
	res.Vote = result
	res.Finalized = len(result.Finalized)
	res.Groups = len(result.Pool)
	res.Ties = len(result.Ties)

	// 4. Local outputs.
	lines := result.Lines()
	if err := writeLines(req.Output, lines); err != nil {
		return nil, err
	}
	artifacts := []string{req.Output}
	if req.PoolDump != "" {
		if err := writePool(req.PoolDump, result); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, req.PoolDump)
	}

	// 5. Sinks and upload.
	deliverErr := a.deliver(ctx, res, lines, log)
	if a.uploader != nil {
		refs, err := a.uploader.UploadFiles(ctx, res.RunID, artifacts)
		res.Uploaded = refs
		if err != nil {
			log.Error("artifact upload failed", logging.Err(err))
			if deliverErr == nil {
				deliverErr = err
			}
		}
	}

	res.Duration = time.Since(start)
	a.metrics.ExtractionDuration.WithLabelValues("annotate").Observe(res.Duration.Seconds())
	log.Info("annotate run finished",
		logging.Int("files", len(files)),
		logging.Int("windows", res.Windows),
		logging.Int("skipped_lines", res.SkippedLines),
		logging.Int("mentions", res.Mentions),
		logging.Int("finalized", res.Finalized),
		logging.Int("ties", res.Ties),
	)
	logging.LogOperationDuration(log, "annotate", start)
	return res, deliverErr
}

// extract runs the extractor in chunks so progress can be reported.
func (a *Annotator) extract(ctx context.Context, windows []phi.Window) ([]phi.Mention, error) {
	timer := prometheus.NewTimer(a.metrics.ExtractionDuration.WithLabelValues("extract"))
	defer timer.ObserveDuration()

	bar := newProgressBar(a.progress, len(windows), "extracting")
	defer bar.Finish()

	var mentions []phi.Mention
	for lo := 0; lo < len(windows); lo += extractChunk {
		hi := min(lo+extractChunk, len(windows))
		batch, err := a.extractor.ExtractBatch(ctx, windows[lo:hi])
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "extraction cancelled")
		}
		for _, ms := range batch {
			mentions = append(mentions, ms...)
		}
		_ = bar.Add(hi - lo)
	}
	return mentions, nil
}

// deliver hands the finalized records to every sink and returns the first
// failure.
func (a *Annotator) deliver(ctx context.Context, res *AnnotateResult, lines []string, log logging.Logger) error {
	if len(a.sinks) == 0 {
		return nil
	}
	records := make([]phi.Record, 0, len(lines))
	for _, l := range lines {
		if r, ok := phi.ParseRecordLine(l); ok {
			records = append(records, r)
		}
	}

	var first error
	for _, s := range a.sinks {
		if err := s.WriteRecords(ctx, res.RunID, records); err != nil {
			log.Error("sink delivery failed", logging.String("sink", s.Name()), logging.Err(err))
			if first == nil {
				first = err
			}
			continue
		}
		res.Sinks = append(res.Sinks, s.Name())
	}
	return first
}

func writePool(path string, result *vote.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create pool dump").WithDetail("path=" + path)
	}
	if err := result.WritePool(f); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to write pool dump").WithDetail("path=" + path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to close pool dump").WithDetail("path=" + path)
	}
	return nil
}

//Personal.AI order the ending
