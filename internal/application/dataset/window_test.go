package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/testutil"
)

func TestParseMode(t *testing.T) {
	for _, m := range AllModes {
		got, err := ParseMode(" " + string(m) + " ")
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("windowed")
	assert.Error(t, err)
}

func TestSlidingWindow(t *testing.T) {
	unit := phi.Window{DocumentID: "d1", Start: 100, Text: "abcdefghij", Label: "CITY:cd++ZIP:hij=>X"}
	got := SlidingWindow(unit, 4, 2)
	assert.Equal(t, []phi.Window{
		{DocumentID: "d1", Start: 100, Text: "abcd", Label: "CITY:cd"},
		{DocumentID: "d1", Start: 102, Text: "cdef", Label: "CITY:cd"},
		{DocumentID: "d1", Start: 104, Text: "efgh", Label: phi.NullLabel},
		{DocumentID: "d1", Start: 106, Text: "ghij", Label: "ZIP:hij=>X"},
		{DocumentID: "d1", Start: 108, Text: "ij", Label: phi.NullLabel},
	}, got)
}

func TestSlidingWindow_NullAndRunes(t *testing.T) {
	unit := phi.Window{DocumentID: "d1", Start: 0, Text: "Zoë Zoë", Label: phi.NullLabel}
	got := SlidingWindow(unit, 4, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "Zoë ", got[0].Text)
	assert.Equal(t, "Zoë", got[1].Text)
	assert.Equal(t, 4, got[1].Start)
	assert.Equal(t, phi.NullLabel, got[1].Label)
}

func newTestSlicer(maxLen, overlap int, aug *Augmenter) (*Slicer, *testutil.MockLogger, *testutil.MockCollector) {
	logger := testutil.NewMockLogger()
	metrics, c := testutil.NewMockPipelineMetrics()
	return NewSlicer(SlicerConfig{MaxLen: maxLen, SliceOverlap: overlap}, aug, logger, metrics), logger, c
}

func TestConcatenateAndSlice_Original(t *testing.T) {
	s, _, c := newTestSlicer(20, 4, nil)
	units := []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "Dr Smith", Label: "DOCTOR:Smith"},
		{DocumentID: "d1", Start: 10, Text: "saw Jones", Label: "PATIENT:Jones"},
	}
	assert.Equal(t, units, s.ConcatenateAndSlice(units, ModeOriginal))
	assert.Equal(t, 2.0, c.Value("dataset_samples_total", "original"))
}

func TestConcatenateAndSlice_Spliced(t *testing.T) {
	s, logger, c := newTestSlicer(20, 4, nil)
	units := []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "Dr Smith", Label: "DOCTOR:Smith"},
		{DocumentID: "d1", Start: 10, Text: "saw Jones", Label: "PATIENT:Jones"},
		{DocumentID: "d1", Start: 20, Text: "today", Label: phi.NullLabel},
		{DocumentID: "d1", Start: 30, Text: "a line that is far too long", Label: phi.NullLabel},
	}

	got := s.ConcatenateAndSlice(units, ModeSpliced)
	assert.Equal(t, []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "Dr Smith  saw Jones ", Label: "DOCTOR:Smith++PATIENT:Jones"},
		{DocumentID: "d1", Start: 10, Text: "saw Jones today     ", Label: "PATIENT:Jones"},
	}, got)
	assert.Equal(t, 2.0, c.Value("dataset_samples_total", "spliced"))
	assert.Empty(t, logger.MessagesAt("error"))
}

func TestConcatenateAndSlice_SplicedNullOnly(t *testing.T) {
	s, _, _ := newTestSlicer(20, 4, nil)
	units := []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "one", Label: phi.NullLabel},
		{DocumentID: "d1", Start: 4, Text: "two", Label: phi.NullLabel},
	}
	got := s.ConcatenateAndSlice(units, ModeSpliced)
	require.Len(t, got, 1)
	assert.Equal(t, phi.Window{DocumentID: "d1", Start: 0, Text: "one two", Label: phi.NullLabel}, got[0])
}

func TestConcatenateAndSlice_OffsetInversionLogged(t *testing.T) {
	s, logger, _ := newTestSlicer(20, 4, nil)
	units := []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "abcdef", Label: phi.NullLabel},
		{DocumentID: "d1", Start: 3, Text: "gh", Label: "CITY:gh"},
	}
	got := s.ConcatenateAndSlice(units, ModeSpliced)
	require.Len(t, got, 1)
	assert.Equal(t, "abcdefgh", got[0].Text)
	assert.Equal(t, "CITY:gh", got[0].Label)

	errs := logger.MessagesAt("error")
	require.Len(t, errs, 1)
	assert.Equal(t, "offset inversion", errs[0].Message)
	expected, _ := errs[0].Field("expected")
	assert.Equal(t, 6, expected)
}

func TestConcatenateAndSlice_Sliced(t *testing.T) {
	s, _, c := newTestSlicer(3, 2, nil)
	units := []phi.Window{
		{DocumentID: "d1", Start: 0, Text: "abc", Label: phi.NullLabel},
		{DocumentID: "d1", Start: 5, Text: "abcdefghij", Label: "CITY:ef"},
	}
	got := s.ConcatenateAndSlice(units, ModeSliced)
	assert.Equal(t, []phi.Window{
		{DocumentID: "d1", Start: 5, Text: "abcdef", Label: "CITY:ef"},
		{DocumentID: "d1", Start: 9, Text: "efghij", Label: "CITY:ef"},
		{DocumentID: "d1", Start: 13, Text: "ij", Label: phi.NullLabel},
	}, got)
	assert.Equal(t, 3.0, c.Value("dataset_samples_total", "sliced"))
}

func TestConcatenateAndSlice_AugmentsEverySample(t *testing.T) {
	aug := NewAugmenter(7, AugmentCounts{Phone: 10})
	s, _, c := newTestSlicer(20, 4, aug)
	units := []phi.Window{{DocumentID: "d1", Start: 0, Text: "Call 9876 5432", Label: "PHONE:9876 5432"}}

	got := s.ConcatenateAndSlice(units, ModeOriginal)
	require.Greater(t, len(got), 1)
	assert.Equal(t, units[0], got[0])
	for _, w := range got[1:] {
		assert.Equal(t, "d1", w.DocumentID)
		for _, tr := range phi.ParseLabelString(w.Label) {
			assert.Contains(t, w.Text, tr.Content)
		}
	}
	assert.Equal(t, float64(len(got)-1), c.Value("dataset_samples_total", "augment"))
}

func TestSegmentReport(t *testing.T) {
	article := "short one\nshort two\nx\n"
	segs := SegmentReport("r1", article, 25, 4)

	assert.Equal(t, []phi.Window{
		{DocumentID: "r1", Start: 0, Text: "short one "},
		{DocumentID: "r1", Start: 10, Text: "short two "},
		{DocumentID: "r1", Start: 20, Text: "x "},
	}, segs.Original)
	assert.Equal(t, []phi.Window{
		{DocumentID: "r1", Start: 0, Text: "short one short two x "},
		{DocumentID: "r1", Start: 10, Text: "short two x "},
	}, segs.Spliced)
	assert.Empty(t, segs.Sliced)
	assert.Equal(t, segs.Spliced, segs.ByMode(ModeSpliced))
	assert.Equal(t, segs.Original, segs.ByMode(ModeOriginal))
}

func TestSegmentReport_BlankLinesAdvanceOffsets(t *testing.T) {
	segs := SegmentReport("r1", "a\n \t\nb\n", 2, 0)
	assert.Equal(t, []phi.Window{
		{DocumentID: "r1", Start: 0, Text: "a "},
		{DocumentID: "r1", Start: 5, Text: "b "},
	}, segs.Original)
}

func TestSegmentReport_Sliced(t *testing.T) {
	article := "ab\n0123456789abcd\n"
	segs := SegmentReport("r1", article, 5, 4)
	assert.Equal(t, []phi.Window{
		{DocumentID: "r1", Start: 3, Text: "0123456789"},
		{DocumentID: "r1", Start: 9, Text: "6789abcd"},
		{DocumentID: "r1", Start: 15, Text: "cd"},
	}, segs.Sliced)
}

func TestLocateSuffix(t *testing.T) {
	text, pos := locateSuffix("hello wörld", "XXwörld")
	assert.Equal(t, "wörld", text)
	assert.Equal(t, 6, pos)
}

func TestSegmentLine(t *testing.T) {
	assert.Equal(t, "r1\t7\tsome text", SegmentLine(phi.Window{DocumentID: "r1", Start: 7, Text: "some text"}))
}

//Personal.AI order the ending
