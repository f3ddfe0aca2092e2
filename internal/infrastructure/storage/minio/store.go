// Package minio uploads run artifacts (answer file, candidate pool and
// scoring reports) to an S3-compatible bucket under <prefix>/<run_id>/.
package minio

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/deid-reconcile/internal/config"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

const sinkName = "minio"

// ObjectAPI is the subset of *minio.Client used by ArtifactStore.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ObjectRef locates one uploaded artifact.
type ObjectRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	ETag   string `json:"etag"`
}

// ArtifactStore writes files into one bucket.
type ArtifactStore struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	region  string
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewArtifactStore connects to cfg.Endpoint and makes sure the bucket exists.
func NewArtifactStore(ctx context.Context, cfg config.StorageConfig, logger logging.Logger, metrics *prometheus.PipelineMetrics) (*ArtifactStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSinkConnect, "failed to create minio client").
			WithDetail("endpoint=" + cfg.Endpoint)
	}
	return NewArtifactStoreWithClient(ctx, client, cfg, logger, metrics)
}

// NewArtifactStoreWithClient builds a store on an existing client.
func NewArtifactStoreWithClient(ctx context.Context, client ObjectAPI, cfg config.StorageConfig, logger logging.Logger, metrics *prometheus.PipelineMetrics) (*ArtifactStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "storage bucket required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	s := &ArtifactStore{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		region:  cfg.Region,
		logger:  logger.Named("minio"),
		metrics: metrics,
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ArtifactStore) ensureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSinkConnect, "failed to check bucket existence").
			WithDetail("bucket=" + s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeSinkConnect, "failed to create bucket").
			WithDetail("bucket=" + s.bucket)
	}
	s.logger.Info("Created bucket", logging.String("bucket", s.bucket))
	return nil
}

// Name identifies the sink.
func (s *ArtifactStore) Name() string { return sinkName }

// ObjectKey returns the key a file is stored under for runID.
func (s *ArtifactStore) ObjectKey(runID, file string) string {
	return path.Join(s.prefix, runID, filepath.Base(file))
}

// UploadFiles stores each file under the run's key space.  Upload stops at
// the first failure; refs lists what was stored before it.
func (s *ArtifactStore) UploadFiles(ctx context.Context, runID string, files []string) ([]ObjectRef, error) {
	refs := make([]ObjectRef, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			s.metrics.SinkRows.WithLabelValues(sinkName, "error").Inc()
			return refs, errors.Wrap(err, errors.ErrCodeUpload, "artifact not readable").WithDetail("path=" + f)
		}

		key := s.ObjectKey(runID, f)
		info, err := s.client.FPutObject(ctx, s.bucket, key, f, minio.PutObjectOptions{
			ContentType:  contentType(f),
			UserMetadata: map[string]string{"run-id": runID},
			UserTags:     map[string]string{"source": "deidrecon"},
		})
		if err != nil {
			s.metrics.SinkRows.WithLabelValues(sinkName, "error").Inc()
			s.logger.Error("artifact upload failed", logging.String("key", key), logging.Err(err))
			return refs, errors.Wrap(err, errors.ErrCodeUpload, "failed to upload artifact").WithDetail("key=" + key)
		}

		s.metrics.SinkRows.WithLabelValues(sinkName, "ok").Inc()
		s.logger.Debug("artifact uploaded",
			logging.String(logging.FieldRunID, runID),
			logging.String("key", key),
			logging.Int64("size", info.Size),
		)
		refs = append(refs, ObjectRef{Bucket: s.bucket, Key: key, Size: info.Size, ETag: info.ETag})
	}
	return refs, nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".tsv":
		return "text/tab-separated-values"
	case ".txt", ".prom":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

//Personal.AI order the ending
