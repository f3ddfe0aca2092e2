// Package kafka publishes finalized annotations as JSON events.  Each
// annotation is one message keyed by document id so a document's events stay
// on one partition; a run_completed event closes every run.
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/deid-reconcile/internal/config"
	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

const sinkName = "kafka"

// ErrPublisherClosed is returned by WriteRecords after Close.
var ErrPublisherClosed = errors.New(errors.ErrCodeSinkClosed, "publisher closed")

// MessageWriter abstracts kafka.Writer for testing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes annotation events to one topic.
type Publisher struct {
	writer    MessageWriter
	topic     string
	batchSize int
	now       func() time.Time
	logger    logging.Logger
	metrics   *prometheus.PipelineMetrics
	closed    atomic.Bool
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithWriter replaces the kafka.Writer built from configuration.
func WithWriter(w MessageWriter) PublisherOption {
	return func(p *Publisher) { p.writer = w }
}

// WithPublisherClock overrides the event timestamp clock.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher validates cfg and builds a hash-balanced writer for it.
func NewPublisher(cfg config.KafkaConfig, logger logging.Logger, metrics *prometheus.PipelineMetrics, opts ...PublisherOption) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "kafka brokers required")
	}
	if cfg.Topic == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "kafka topic required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}

	p := &Publisher{
		topic:     cfg.Topic,
		batchSize: cfg.BatchSize,
		now:       time.Now,
		logger:    logger.Named("kafka"),
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			MaxAttempts:  4,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: requiredAcks(cfg.RequiredAcks),
			Compression:  compression(cfg.Compression),
		}
	}
	return p, nil
}

// Name identifies the sink.
func (p *Publisher) Name() string { return sinkName }

// WriteRecords publishes one event per record in batches, then the run
// summary.  Partial batch failures are counted and reported as one error.
func (p *Publisher) WriteRecords(ctx context.Context, runID string, records []phi.Record) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	ts := p.now()
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		env, err := NewEventEnvelope(EventAnnotationFinalized, runID, ts, NewAnnotationPayload(r))
		if err != nil {
			return err
		}
		msg, err := toMessage(env, r.DocumentID())
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	failed := 0
	var firstErr error
	for lo := 0; lo < len(msgs); lo += p.batchSize {
		hi := min(lo+p.batchSize, len(msgs))
		n, err := p.writeBatch(ctx, msgs[lo:hi])
		failed += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	sent := len(msgs) - failed
	p.metrics.SinkRows.WithLabelValues(sinkName, "ok").Add(float64(sent))
	if failed > 0 {
		p.metrics.SinkRows.WithLabelValues(sinkName, "error").Add(float64(failed))
	}

	summary, err := NewEventEnvelope(EventRunCompleted, runID, ts, RunCompletedPayload{Annotations: sent, Failed: failed})
	if err != nil {
		return err
	}
	msg, err := toMessage(summary, runID)
	if err != nil {
		return err
	}
	if _, err := p.writeBatch(ctx, []kafka.Message{msg}); err != nil && firstErr == nil {
		firstErr = err
	}

	p.logger.Info("annotations published",
		logging.String(logging.FieldRunID, runID),
		logging.Int("succeeded", sent),
		logging.Int("failed", failed),
	)
	if firstErr != nil {
		return errors.Wrap(firstErr, errors.ErrCodePublish, "failed to publish annotations").
			WithDetail("topic=" + p.topic)
	}
	return nil
}

// writeBatch returns how many messages of batch failed.
func (p *Publisher) writeBatch(ctx context.Context, batch []kafka.Message) (int, error) {
	err := p.writer.WriteMessages(ctx, batch...)
	if err == nil {
		return 0, nil
	}
	if writeErrs, ok := err.(kafka.WriteErrors); ok {
		n := 0
		for _, we := range writeErrs {
			if we != nil {
				n++
			}
		}
		return n, err
	}
	return len(batch), err
}

// Close flushes and closes the writer.  Subsequent calls are no-ops.
func (p *Publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka publisher closed", logging.String("topic", p.topic))
	return err
}

func toMessage(env *EventEnvelope, key string) (kafka.Message, error) {
	val, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: val,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "run_id", Value: []byte(env.RunID)},
			{Key: "schema_version", Value: []byte(env.SchemaVersion)},
		},
		Time: env.Timestamp,
	}, nil
}

// requiredAcks maps the acks setting to kafka-go.  Anything other than
// "none" or "all" waits for the partition leader.
func requiredAcks(mode string) kafka.RequiredAcks {
	switch strings.ToLower(mode) {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}

func compression(codec string) kafka.Compression {
	switch codec {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}

//Personal.AI order the ending
