package testutil_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)
	v, ok := messages[0].Field("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecord(t *testing.T) {
	logger := testutil.NewMockLogger()
	child := logger.Named("vote").With(logging.String(logging.FieldDocID, "d1"))
	child.WithError(errors.New("boom")).Warn("Undecided")

	warns := logger.MessagesAt("warn")
	require.Len(t, warns, 1)
	assert.Equal(t, "vote", warns[0].Logger)
	doc, _ := warns[0].Field(logging.FieldDocID)
	assert.Equal(t, "d1", doc)
	e, _ := warns[0].Field("error")
	assert.Equal(t, "boom", e)
}

func TestFixtures(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "sub/a.txt", testutil.Lines("x", "", "y"))
	assert.Equal(t, []string{"x", "y"}, testutil.ReadLines(t, path))

	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, testutil.FixedClock(ts)())
}

//Personal.AI order the ending
