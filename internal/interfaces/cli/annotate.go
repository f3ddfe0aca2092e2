package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/deid-reconcile/internal/application/pipeline"
	"github.com/turtacn/deid-reconcile/internal/config"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/database/postgres"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/storage/minio"
	"github.com/turtacn/deid-reconcile/internal/intelligence/phi_extractor"
	"github.com/turtacn/deid-reconcile/internal/intelligence/vote"
)

// sinkFactory opens a record sink and returns a function releasing it.
type sinkFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.PipelineMetrics) (pipeline.RecordSink, func(), error)

// uploaderFactory opens the artifact store.
type uploaderFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.PipelineMetrics) (pipeline.ArtifactUploader, error)

// Factories are variables so tests can run annotate without live services.
var (
	openPostgresSink sinkFactory = func(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.PipelineMetrics) (pipeline.RecordSink, func(), error) {
		conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewAnnotationSink(conn.Pool(), logger, metrics), conn.Close, nil
	}

	openKafkaSink sinkFactory = func(_ context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.PipelineMetrics) (pipeline.RecordSink, func(), error) {
		pub, err := kafka.NewPublisher(cfg.Kafka, logger, metrics)
		if err != nil {
			return nil, nil, err
		}
		return pub, func() { _ = pub.Close() }, nil
	}

	openUploader uploaderFactory = func(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.PipelineMetrics) (pipeline.ArtifactUploader, error) {
		store, err := minio.NewArtifactStore(ctx, cfg.Storage, logger, metrics)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
)

type annotateOptions struct {
	pred         []string
	out          string
	dump         string
	sinkPostgres bool
	publishKafka bool
	upload       bool
}

// NewAnnotateCmd creates the annotate command.
func NewAnnotateCmd() *cobra.Command {
	opts := &annotateOptions{}
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Reconcile window predictions into one annotation file",
		Long: "Reads prediction files of document, start, text and label rows, extracts the\n" +
			"labelled spans, votes one annotation per position and writes the answer file.\n" +
			"The result can also be stored in PostgreSQL, published to Kafka and uploaded\n" +
			"to object storage.",
		Example: "  deidrecon annotate --pred 'runs/**/*.tsv' --out answer.txt --dump pool.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runAnnotate(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.pred, "pred", nil, "prediction files or doublestar globs (repeatable, required)")
	f.StringVar(&opts.out, "out", "answer.txt", "answer file path")
	f.StringVar(&opts.dump, "dump", "", "write the candidate pool as JSON to this path (default: pipeline.pool_dump)")
	f.BoolVar(&opts.sinkPostgres, "sink-postgres", false, "store finalized annotations in PostgreSQL")
	f.BoolVar(&opts.publishKafka, "publish-kafka", false, "publish finalized annotations to Kafka")
	f.BoolVar(&opts.upload, "upload", false, "upload the answer file and pool dump to object storage")
	_ = cmd.MarkFlagRequired("pred")
	return cmd
}

func runAnnotate(cmd *cobra.Command, cliCtx *CLIContext, opts *annotateOptions) error {
	ctx := cmd.Context()
	cfg, logger, metrics := cliCtx.Config, cliCtx.Logger, cliCtx.Metrics

	extractor := phi_extractor.NewSpanExtractor(phi_extractor.ExtractorConfig{
		BatchConcurrency: cfg.Pipeline.Concurrency,
		WarnNonNFC:       cfg.Pipeline.WarnNonNFC,
	}, logger, metrics)
	aggregator := vote.NewAggregator(logger, metrics)

	var annOpts []pipeline.AnnotatorOption
	if cfg.Pipeline.Progress {
		annOpts = append(annOpts, pipeline.WithProgress(cmd.ErrOrStderr()))
	}

	type sinkSpec struct {
		enabled bool
		open    sinkFactory
	}
	for _, s := range []sinkSpec{
		{opts.sinkPostgres || cfg.Database.Enabled, openPostgresSink},
		{opts.publishKafka || cfg.Kafka.Enabled, openKafkaSink},
	} {
		if !s.enabled {
			continue
		}
		sink, release, err := s.open(ctx, cfg, logger, metrics)
		if err != nil {
			return err
		}
		defer release()
		annOpts = append(annOpts, pipeline.WithSinks(sink))
	}
	if opts.upload || cfg.Storage.Enabled {
		uploader, err := openUploader(ctx, cfg, logger, metrics)
		if err != nil {
			return err
		}
		annOpts = append(annOpts, pipeline.WithUploader(uploader))
	}

	dump := opts.dump
	if dump == "" {
		dump = cfg.Pipeline.PoolDump
	}

	annotator := pipeline.NewAnnotator(extractor, aggregator, logger, metrics, annOpts...)
	res, err := annotator.Run(ctx, pipeline.AnnotateRequest{Patterns: opts.pred, Output: opts.out, PoolDump: dump})
	if res != nil {
		if perr := PrintResult(cmd, annotateView{res, opts.out}); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

// annotateView renders an AnnotateResult.
type annotateView struct {
	*pipeline.AnnotateResult
	Output string `json:"output"`
}

func (v annotateView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %d windows from %d files, %d skipped lines\n", v.RunID, v.Windows, len(v.Files), v.SkippedLines)
	fmt.Fprintf(&sb, "%d mentions, %d groups, %d ties, %d finalized -> %s\n", v.Mentions, v.Groups, v.Ties, v.Finalized, v.Output)
	if len(v.Sinks) > 0 {
		fmt.Fprintf(&sb, "delivered to %s\n", strings.Join(v.Sinks, ", "))
	}
	for _, ref := range v.Uploaded {
		fmt.Fprintf(&sb, "uploaded s3://%s/%s\n", ref.Bucket, ref.Key)
	}
	return sb.String()
}

func (v annotateView) TableHeaders() []string { return []string{"metric", "value"} }

func (v annotateView) TableRows() [][]string {
	return [][]string{
		{"run_id", v.RunID},
		{"files", strconv.Itoa(len(v.Files))},
		{"windows", strconv.Itoa(v.Windows)},
		{"skipped_lines", strconv.Itoa(v.SkippedLines)},
		{"mentions", strconv.Itoa(v.Mentions)},
		{"groups", strconv.Itoa(v.Groups)},
		{"ties", strconv.Itoa(v.Ties)},
		{"finalized", strconv.Itoa(v.Finalized)},
		{"output", v.Output},
	}
}

//Personal.AI order the ending
