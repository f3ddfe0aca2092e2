package dataset

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/testutil"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

func answers(t *testing.T, rows ...string) []phi.Record {
	t.Helper()
	docs, skipped, err := LoadAnnotations(strings.NewReader(testutil.Lines(rows...)))
	require.NoError(t, err)
	require.Zero(t, skipped)
	var out []phi.Record
	for _, recs := range docs.Values() {
		out = append(out, recs...)
	}
	return out
}

func TestLoadAnnotations(t *testing.T) {
	input := testutil.Lines(
		"\ufeffd2\tDOCTOR\t3\t8\tSmith",
		"d1\tDATE\t0\t8\t5/6/2019\t2019-06-05",
		"d2\tCITY\t20\t26\tSydney",
		"d1\tTOO\t0\t1\tmany\tfields\there",
		"d1\tSHORT\t0",
		"d1\tAGE\tx\t2\t45",
	)
	docs, skipped, err := LoadAnnotations(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	assert.Equal(t, []string{"d2", "d1"}, docs.Keys())

	d2, _ := docs.Get("d2")
	require.Len(t, d2, 2)
	assert.Equal(t, "Smith", d2[0].Text())
	assert.Equal(t, "Sydney", d2[1].Text())

	d1, _ := docs.Get("d1")
	require.Len(t, d1, 1)
	norm, ok := d1[0].Normalized()
	assert.True(t, ok)
	assert.Equal(t, "2019-06-05", norm)
}

func TestLoadAnnotationsFile_Missing(t *testing.T) {
	_, _, err := LoadAnnotationsFile(filepath.Join(t.TempDir(), "answer.txt"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInputOpen))
}

func TestReadArticle(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "r.txt", "\ufeffline one\r\nline two\n")
	article, err := ReadArticle(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", article)
}

func TestBuildSequencePairs(t *testing.T) {
	article := "Dr Smith saw\n\nPatient Jones on 5/6/2019.\nNo PHI here\ntrailing"
	anns := answers(t,
		"d1\tPATIENT\t22\t27\tJones",
		"d1\tDOCTOR\t3\t8\tSmith",
		"d1\tDATE\t31\t39\t5/6/2019\t2019-06-05",
	)

	got := BuildSequencePairs("d1", article, anns)
	assert.Equal(t, []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "Dr Smith saw", Label: "DOCTOR:Smith"},
		{DocumentID: "d1", Start: 14, Text: "Patient Jones on 5/6/2019.", Label: "PATIENT:Jones++DATE:5/6/2019"},
		{DocumentID: "d1", Start: 41, Text: "No PHI here", Label: phi.NullLabel},
	}, got)
}

func TestBuildSequencePairs_TrimmedLineKeepsStart(t *testing.T) {
	got := BuildSequencePairs("d1", "  Zoë\tSmith  \n", answers(t, "d1\tPATIENT\t6\t11\tSmith"))
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, "Zoë Smith", got[0].Text)
	assert.Equal(t, "PATIENT:Smith", got[0].Label)
}

func TestBuildSequencePairs_SharedStart(t *testing.T) {
	got := BuildSequencePairs("d1", "Smith Jones\n", answers(t,
		"d1\tDOCTOR\t0\t5\tSmith",
		"d1\tPATIENT\t0\t11\tSmith Jones",
	))
	require.Len(t, got, 1)
	assert.Equal(t, "DOCTOR:Smith++PATIENT:Smith Jones", got[0].Label)
}

func TestBuildNormalizationPairs(t *testing.T) {
	got := BuildNormalizationPairs(answers(t,
		"d1\tDOCTOR\t3\t8\tSmith",
		"d1\tDATE\t31\t39\t5/6/2019\t2019-06-05",
		"d1\tDURATION\t40\t47\t3 weeks\tP3W",
	))
	assert.Equal(t, []string{"DATE:5/6/2019\t2019-06-05", "DURATION:3 weeks\tP3W"}, got)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, dedupe([]string{"b", "a", "b", "c", "a"}))
	assert.Empty(t, dedupe(nil))
}

//Personal.AI order the ending
