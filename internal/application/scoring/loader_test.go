package scoring

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/testutil"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

func TestLoadRecords(t *testing.T) {
	input := testutil.Lines(
		"\ufeffd1\tDOCTOR\t0\t5\tSmith",
		"d1\tDATE\t10\t18\t5/6/2019\t2019-06-05",
		"",
		"short\tline",
		"d1\tCITY\tx\t5\tSydney",
		"  d2\tAGE\t3\t5\t45  ",
	)

	recs, skipped, err := LoadRecords(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, recs, 3)
	assert.Equal(t, "d1", recs[0].DocumentID())
	norm, ok := recs[1].Normalized()
	assert.True(t, ok)
	assert.Equal(t, "2019-06-05", norm)
	assert.Equal(t, "45", recs[2].Text())
}

func TestLoadRecordsFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "truth.txt", testutil.Lines("d1\tDOCTOR\t0\t5\tSmith"))

	recs, skipped, err := LoadRecordsFile(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Len(t, recs, 1)

	_, _, err = LoadRecordsFile(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputOpen))
}

func TestLoadRecords_LineTooLong(t *testing.T) {
	long := "d1\tDOCTOR\t0\t5\t" + strings.Repeat("x", maxLineSize+1)
	_, _, err := LoadRecords(strings.NewReader(long))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputRead))
}

//Personal.AI order the ending
