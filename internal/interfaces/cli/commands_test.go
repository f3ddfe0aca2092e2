package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/application/pipeline"
	"github.com/turtacn/deid-reconcile/internal/config"
	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/storage/minio"
	"github.com/turtacn/deid-reconcile/internal/testutil"
	apperrors "github.com/turtacn/deid-reconcile/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Stubs
// ─────────────────────────────────────────────────────────────────────────────

type recordingSink struct {
	name     string
	records  []phi.Record
	released bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) WriteRecords(_ context.Context, _ string, records []phi.Record) error {
	s.records = append(s.records, records...)
	return nil
}

func stubSink(t *testing.T, target *sinkFactory, sink *recordingSink, openErr error) {
	t.Helper()
	orig := *target
	t.Cleanup(func() { *target = orig })
	*target = func(context.Context, *config.Config, logging.Logger, *prometheus.PipelineMetrics) (pipeline.RecordSink, func(), error) {
		if openErr != nil {
			return nil, nil, openErr
		}
		return sink, func() { sink.released = true }, nil
	}
}

type recordingUploader struct{ files []string }

func (u *recordingUploader) UploadFiles(_ context.Context, runID string, files []string) ([]minio.ObjectRef, error) {
	u.files = append(u.files, files...)
	refs := make([]minio.ObjectRef, len(files))
	for i, f := range files {
		refs[i] = minio.ObjectRef{Bucket: "deid-artifacts", Key: runID + "/" + filepath.Base(f)}
	}
	return refs, nil
}

const (
	predDoctor = "d1\t100\tDr Smith saw Smith today\tDOCTOR:Smith"
	predCity   = "d1\t200\tMoved to Sydney\tCITY:Sydney"
)

// ─────────────────────────────────────────────────────────────────────────────
// annotate
// ─────────────────────────────────────────────────────────────────────────────

func TestAnnotateCmd(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "runs/a/pred.tsv", testutil.Lines(predDoctor))
	testutil.WriteFile(t, dir, "runs/b/pred.tsv", testutil.Lines(predCity, predDoctor))
	answer := filepath.Join(dir, "answer.txt")
	pool := filepath.Join(dir, "pool.json")

	out, err := executeCommand(t, dir, "-o", "json", "annotate",
		"--pred", filepath.Join(dir, "runs", "**", "*.tsv"),
		"--out", answer,
		"--dump", pool)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got["run_id"])
	assert.Equal(t, 3.0, got["finalized"])
	assert.Equal(t, answer, got["output"])

	assert.Equal(t, []string{
		"d1\tDOCTOR\t103\t108\tSmith",
		"d1\tDOCTOR\t113\t118\tSmith",
		"d1\tCITY\t209\t215\tSydney",
	}, testutil.ReadLines(t, answer))
	assert.FileExists(t, pool)
}

func TestAnnotateCmd_SinksAndUpload(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.tsv", testutil.Lines(predCity))
	pg := &recordingSink{name: "postgres"}
	kf := &recordingSink{name: "kafka"}
	stubSink(t, &openPostgresSink, pg, nil)
	stubSink(t, &openKafkaSink, kf, nil)

	up := &recordingUploader{}
	origUploader := openUploader
	t.Cleanup(func() { openUploader = origUploader })
	openUploader = func(context.Context, *config.Config, logging.Logger, *prometheus.PipelineMetrics) (pipeline.ArtifactUploader, error) {
		return up, nil
	}

	answer := filepath.Join(dir, "answer.txt")
	out, err := executeCommand(t, dir, "annotate", "--pred", pred, "--out", answer,
		"--sink-postgres", "--publish-kafka", "--upload")
	require.NoError(t, err)

	for _, s := range []*recordingSink{pg, kf} {
		require.Len(t, s.records, 1, s.name)
		assert.Equal(t, "Sydney", s.records[0].Text())
		assert.True(t, s.released, s.name)
	}
	assert.Equal(t, []string{answer}, up.files)
	assert.Contains(t, out, "delivered to postgres, kafka")
	assert.Contains(t, out, "uploaded s3://deid-artifacts/")
}

func TestAnnotateCmd_SinkOpenFailure(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.tsv", testutil.Lines(predCity))
	stubSink(t, &openKafkaSink, nil, apperrors.New(apperrors.ErrCodeSinkConnect, "no brokers"))

	_, err := executeCommand(t, dir, "annotate", "--pred", pred, "--out", filepath.Join(dir, "answer.txt"), "--publish-kafka")
	require.Error(t, err)
	assert.Equal(t, 4, apperrors.ExitCodeForError(err))
	assert.NoFileExists(t, filepath.Join(dir, "answer.txt"))
}

func TestAnnotateCmd_RequiresPred(t *testing.T) {
	_, err := executeCommand(t, t.TempDir(), "annotate")
	assert.Error(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// evaluate
// ─────────────────────────────────────────────────────────────────────────────

func TestEvaluateCmd(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", testutil.Lines("d1\tDOCTOR\t3\t8\tSmith"))
	truth := testutil.WriteFile(t, dir, "truth.txt", testutil.Lines(
		"d1\tDOCTOR\t3\t8\tSmith",
		"d1\tCITY\t20\t26\tSydney",
	))

	out, err := executeCommand(t, dir, "-o", "json", "evaluate", "--pred", pred, "--truth", truth, "--xlsx", "scores.xlsx")
	require.NoError(t, err)

	var got struct {
		Micro    scoringCounts `json:"micro"`
		Workbook string        `json:"workbook"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Micro.TP)
	assert.Equal(t, 1, got.Micro.FN)
	assert.Equal(t, filepath.Join(dir, "reports", "scores.xlsx"), got.Workbook)
	assert.FileExists(t, got.Workbook)
}

type scoringCounts struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

func TestEvaluateCmd_Text(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", testutil.Lines("d1\tDOCTOR\t3\t8\tSmith"))

	out, err := executeCommand(t, dir, "evaluate", "--pred", pred, "--truth", pred)
	require.NoError(t, err)
	assert.Contains(t, out, "precision: 1.0000")
	assert.Contains(t, out, "tp=1 fp=0 fn=0")
	assert.Contains(t, out, "macro f1:  1.0000")
}

func TestEvaluateCmd_BothEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := testutil.WriteFile(t, dir, "empty.txt", "")
	_, err := executeCommand(t, dir, "evaluate", "--pred", empty, "--truth", empty)
	require.Error(t, err)
	assert.Equal(t, 3, apperrors.ExitCodeForError(err))
}

func TestEvaluateNormCmd_Table(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", testutil.Lines("d1\tDATE\t0\t8\t5/6/2019\t2019-06-05"))
	truth := testutil.WriteFile(t, dir, "truth.txt", testutil.Lines("d1\tDATE\t0\t8\t5/6/2019\t2019-06-05"))

	out, err := executeCommand(t, dir, "-o", "table", "evaluate-norm", "--pred", pred, "--truth", truth, "--categories", "DATE")
	require.NoError(t, err)
	assert.Contains(t, out, "category")
	assert.Contains(t, out, "ALL")
}

func TestEvaluateNormCmd_UnknownCategory(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", testutil.Lines("d1\tDATE\t0\t8\t5/6/2019\t2019-06-05"))
	_, err := executeCommand(t, dir, "evaluate-norm", "--pred", pred, "--truth", pred, "--categories", "NOPE")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeScoreCategories))
}

// ─────────────────────────────────────────────────────────────────────────────
// normalize
// ─────────────────────────────────────────────────────────────────────────────

func TestNormalizeCmd(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "answer_norm.txt", testutil.Lines(
		"d1\tDATE\t0\t8\t5/6/2019\t2019-05-06",
		"d1\tDOCTOR\t10\t15\tSmith",
	))
	outPath := filepath.Join(dir, "clean", "answer.txt")

	out, err := executeCommand(t, dir, "normalize", "--in", in, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows written")
	assert.Contains(t, out, "1 normalized values corrected")
	assert.Equal(t, []string{
		"d1\tDATE\t0\t8\t5/6/2019\t2019-06-05",
		"d1\tDOCTOR\t10\t15\tSmith",
	}, testutil.ReadLines(t, outPath))
}

func TestNormalizeCmd_SamePath(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteFile(t, dir, "answer.txt", "")
	_, err := executeCommand(t, dir, "normalize", "--in", in, "--out", in)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

// ─────────────────────────────────────────────────────────────────────────────
// dataset
// ─────────────────────────────────────────────────────────────────────────────

func TestDatasetBuildCmd(t *testing.T) {
	dir := t.TempDir()
	anns := testutil.WriteFile(t, dir, "answer.txt", testutil.Lines("d1\tDOCTOR\t3\t8\tSmith"))
	testutil.WriteFile(t, dir, "texts/d1.txt", "Dr Smith saw him\nNo findings\n")
	base := filepath.Join(dir, "ner.tsv")

	out, err := executeCommand(t, dir, "dataset", "build",
		"--annotations", anns, "--reports", filepath.Join(dir, "texts"), "--out", base)
	require.NoError(t, err)
	assert.Contains(t, out, "train: 2 samples from 1 documents")
	assert.Len(t, testutil.ReadLines(t, filepath.Join(dir, "ner_train.tsv")), 2)
}

func TestDatasetBuildCmd_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	anns := testutil.WriteFile(t, dir, "answer.txt", testutil.Lines("d1\tDOCTOR\t3\t8\tSmith"))
	_, err := executeCommand(t, dir, "dataset", "build", "--annotations", anns, "--reports", dir, "--mode", "diced")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestDatasetSegmentCmd(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "texts/r1.txt", "short one\nshort two\nx\n")

	out, err := executeCommand(t, dir, "-o", "table", "dataset", "segment",
		"--reports", filepath.Join(dir, "texts", "*.txt"), "--out", filepath.Join(dir, "infer.tsv"))
	require.NoError(t, err)
	assert.Contains(t, out, "original")
	assert.Contains(t, out, filepath.Join(dir, "infer_spliced.tsv"))
}

func TestDatasetNormPairsCmd(t *testing.T) {
	dir := t.TempDir()
	anns := testutil.WriteFile(t, dir, "answer.txt", testutil.Lines("d1\tDATE\t0\t8\t5/6/2019\t2019-06-05"))
	outPath := filepath.Join(dir, "norm.tsv")

	out, err := executeCommand(t, dir, "dataset", "norm-pairs", "--annotations", anns, "--out", outPath, "--forged", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "1 normalization pairs")
	assert.Equal(t, []string{"DATE:5/6/2019\t2019-06-05"}, testutil.ReadLines(t, outPath))
}

// ─────────────────────────────────────────────────────────────────────────────
// migrate
// ─────────────────────────────────────────────────────────────────────────────

func stubMigrations(t *testing.T) (*int, *string) {
	t.Helper()
	origUp, origDown, origStatus := migrateUp, migrateDown, migrateStatus
	t.Cleanup(func() { migrateUp, migrateDown, migrateStatus = origUp, origDown, origStatus })

	version := 0
	var dsn string
	migrateUp = func(d string) error { dsn = d; version = 1; return nil }
	migrateDown = func(d string, steps int) error {
		if steps <= 0 {
			return apperrors.New(apperrors.ErrCodeConfigInvalid, "steps must be positive")
		}
		version -= steps
		return nil
	}
	migrateStatus = func(string) (uint, bool, error) { return uint(max(version, 0)), false, nil }
	return &version, &dsn
}

func TestMigrateCmd(t *testing.T) {
	dir := t.TempDir()
	version, dsn := stubMigrations(t)

	out, err := executeCommand(t, dir, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "schema version 1\n", out)
	assert.Equal(t, 1, *version)
	assert.Contains(t, *dsn, "postgres://")

	out, err = executeCommand(t, dir, "migrate", "down", "--steps", "1")
	require.NoError(t, err)
	assert.Equal(t, "schema version 0\n", out)

	_, err = executeCommand(t, dir, "migrate", "down", "--steps", "0")
	require.Error(t, err)
	assert.Equal(t, 5, apperrors.ExitCodeForError(err))
}

func TestMigrateStatusCmd_JSON(t *testing.T) {
	stubMigrations(t)
	out, err := executeCommand(t, t.TempDir(), "-o", "json", "migrate", "status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":0,"dirty":false}`, out)
}

//Personal.AI order the ending
