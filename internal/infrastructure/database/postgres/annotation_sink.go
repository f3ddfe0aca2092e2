package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// sinkName labels the sink in metrics and logs.
const sinkName = "postgres"

// annotationColumns is the COPY column order of the annotations table.
var annotationColumns = []string{
	"run_id", "document_id", "category", "start_offset", "end_offset", "content", "normalized", "created_at",
}

// Copier is the subset of pgxpool.Pool used by AnnotationSink.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// AnnotationSink bulk-loads finalized annotations with COPY.
type AnnotationSink struct {
	db      Copier
	table   string
	now     func() time.Time
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// SinkOption configures an AnnotationSink.
type SinkOption func(*AnnotationSink)

// WithTable overrides the destination table.
func WithTable(name string) SinkOption {
	return func(s *AnnotationSink) { s.table = name }
}

// WithSinkClock overrides the created_at clock.
func WithSinkClock(now func() time.Time) SinkOption {
	return func(s *AnnotationSink) { s.now = now }
}

// NewAnnotationSink creates a sink writing through db.
func NewAnnotationSink(db Copier, logger logging.Logger, metrics *prometheus.PipelineMetrics, opts ...SinkOption) *AnnotationSink {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	s := &AnnotationSink{
		db:      db,
		table:   "annotations",
		now:     time.Now,
		logger:  logger.Named("postgres_sink"),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the sink.
func (s *AnnotationSink) Name() string { return sinkName }

// WriteRecords copies records tagged with runID.  An empty batch is a no-op.
func (s *AnnotationSink) WriteRecords(ctx context.Context, runID string, records []phi.Record) error {
	if len(records) == 0 {
		return nil
	}
	if s.db == nil {
		return errors.New(errors.ErrCodeSinkClosed, "annotation sink has no connection")
	}

	createdAt := s.now().UTC()
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordRow(runID, r, createdAt))
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{s.table}, annotationColumns, pgx.CopyFromRows(rows))
	if err != nil {
		s.metrics.SinkRows.WithLabelValues(sinkName, "error").Add(float64(len(rows)))
		s.logger.Error("copy annotations failed",
			logging.String(logging.FieldRunID, runID),
			logging.Int("rows", len(rows)),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodeSinkWrite, "copy annotations failed").
			WithDetail("table=" + s.table)
	}

	s.metrics.SinkRows.WithLabelValues(sinkName, "ok").Add(float64(n))
	s.logger.Info("annotations stored",
		logging.String(logging.FieldRunID, runID),
		logging.Int64("rows", n),
	)
	return nil
}

// recordRow maps a record onto annotationColumns.  A missing normalized
// column is stored as NULL.
func recordRow(runID string, r phi.Record, createdAt time.Time) []interface{} {
	var normalized interface{}
	if norm, ok := r.Normalized(); ok {
		normalized = norm
	}
	return []interface{}{
		runID, r.DocumentID(), string(r.Category()), r.Start, r.End, r.Text(), normalized, createdAt,
	}
}

//Personal.AI order the ending
