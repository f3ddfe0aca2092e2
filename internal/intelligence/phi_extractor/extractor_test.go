package phi_extractor

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/testutil"
)

func newTestExtractor(t *testing.T) (SpanExtractor, *testutil.MockLogger, *testutil.MockCollector) {
	t.Helper()
	logger := testutil.NewMockLogger()
	metrics, collector := testutil.NewMockPipelineMetrics()
	return NewSpanExtractor(DefaultExtractorConfig(), logger, metrics), logger, collector
}

func TestExtract_EveryOccurrenceWithWindowOffset(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d1", Start: 100, Text: "Dr Smith saw Smith today", Label: "DOCTOR:Smith"})
	assert.Equal(t, []phi.Mention{
		{DocumentID: "d1", Category: phi.Doctor, Start: 103, End: 108, Text: "Smith"},
		{DocumentID: "d1", Category: phi.Doctor, Start: 113, End: 118, Text: "Smith"},
	}, got)
}

func TestExtract_FirstCategoryWins(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d1", Text: "Smith and Smith", Label: "DOCTOR:Smith++PATIENT:Smith"})
	require.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, phi.Doctor, m.Category)
	}
}

func TestExtract_NonOverlappingOccurrences(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d1", Text: "ID aaa", Label: "CITY:aa"})
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Start)
	assert.Equal(t, 5, got[0].End)
}

func TestExtract_CharacterOffsets(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	text := "Café Zoë met Dr Jones"
	got := e.Extract(phi.Window{DocumentID: "d1", Start: 10, Text: text, Label: "DOCTOR:Jones"})
	require.Len(t, got, 1)
	assert.Equal(t, 26, got[0].Start)
	assert.Equal(t, 31, got[0].End)
	assert.Equal(t, "Jones", string([]rune(text)[got[0].Start-10:got[0].End-10]))
}

func TestExtract_RegexMetacharactersLiteral(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d1", Text: "Email a.b+c@x.org or aXb+c@x.org", Label: "EMAIL:a.b+c@x.org"})
	require.Len(t, got, 1)
	assert.Equal(t, 6, got[0].Start)
}

func TestExtract_AgeInsideDate(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d1", Text: "Seen on 03/05/2020 for review", Label: "DATE:03/05/2020++AGE:03"})
	assert.Equal(t, []phi.Mention{
		{DocumentID: "d1", Category: phi.Date, Start: 8, End: 18, Text: "03/05/2020"},
	}, got)
}

func TestExtract_DetectedDuration(t *testing.T) {
	e, _, c := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d2", Start: 7, Text: "Pain for 3 weeks", Label: phi.NullLabel})
	assert.Equal(t, []phi.Mention{
		{DocumentID: "d2", Category: phi.Duration, Start: 16, End: 23, Text: "3 weeks"},
	}, got)
	assert.Equal(t, 1.0, c.Value("detections_added_total", "DURATION"))
	assert.Equal(t, 1.0, c.Value("mentions_emitted_total", "DURATION"))
}

func TestExtract_RejectedAndCompleted(t *testing.T) {
	e, _, c := newTestExtractor(t)
	got := e.Extract(phi.Window{
		DocumentID: "d3",
		Text:       "Dr eh saw JOHNATHAN",
		Label:      "DOCTOR:eh++PATIENT:JOHNAT",
	})
	assert.Equal(t, []phi.Mention{
		{DocumentID: "d3", Category: phi.Patient, Start: 10, End: 19, Text: "JOHNATHAN"},
	}, got)
	assert.Equal(t, 1.0, c.Value("labels_rejected_total", "DOCTOR"))
	assert.Equal(t, 1.0, c.Value("contents_completed_total", "PATIENT"))
}

func TestExtract_NullLabelAndMalformed(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	assert.Empty(t, e.Extract(phi.Window{DocumentID: "d1", Text: "Nothing here", Label: phi.NullLabel}))
	assert.Empty(t, e.Extract(phi.Window{DocumentID: "d1", Text: "Nothing here", Label: "garbage++lower:case"}))
	assert.Empty(t, e.Extract(phi.Window{DocumentID: "d1", Text: "Nothing here", Label: "CITY:Paris"}))
}

func TestExtract_EmptyContentSkipped(t *testing.T) {
	e, logger, _ := newTestExtractor(t)
	got := e.Extract(phi.Window{DocumentID: "d1", Text: "Dr Jones", Label: "CITY:  ++DOCTOR:Jones"})
	require.Len(t, got, 1)
	assert.Equal(t, phi.Doctor, got[0].Category)
	assert.True(t, logger.HasMessage("debug", "skipping empty content"))
}

func TestExtract_WarnsOnNonNFC(t *testing.T) {
	e, logger, _ := newTestExtractor(t)
	e.Extract(phi.Window{DocumentID: "d1", Text: "Cafe\u0301 Jones", Label: "DOCTOR:Jones"})
	assert.True(t, logger.HasMessage("warn", "window text is not NFC normalised"))

	logger.Clear()
	e.Extract(phi.Window{DocumentID: "d1", Text: "Café Jones", Label: "DOCTOR:Jones"})
	assert.Empty(t, logger.MessagesAt("warn"))
}

func TestExtract_Idempotent(t *testing.T) {
	e, _, _ := newTestExtractor(t)
	w := phi.Window{
		DocumentID: "d9",
		Start:      40,
		Text:       "Dr Smith reviewed Smith at ROYAL NORTH SHORE HOSPITAL for 2 days",
		Label:      "DOCTOR:Smith++HOSPITAL:ROYAL NORTH",
	}
	first := e.Extract(w)
	require.NotEmpty(t, first)
	assert.Equal(t, first, e.Extract(w))
}

func TestExtract_OffsetsIndexDocument(t *testing.T) {
	document := []rune("Ünïcode report. Dr Smith saw Zoë Smith on 12/03/2019. Follow up in 3 weeks.")
	windows := []phi.Window{
		{DocumentID: "d1", Start: 0, Text: string(document[:28]), Label: "DOCTOR:Smith"},
		{DocumentID: "d1", Start: 16, Text: string(document[16:]), Label: "PATIENT:Zoë Smith++DATE:12/03/2019"},
	}

	e, _, _ := newTestExtractor(t)
	for _, w := range windows {
		for _, m := range e.Extract(w) {
			require.True(t, m.Valid())
			require.LessOrEqual(t, m.End, len(document))
			assert.Equal(t, m.Text, string(document[m.Start:m.End]), "%+v", m)
		}
	}
}

func TestExtractBatch_PreservesOrder(t *testing.T) {
	logger := testutil.NewMockLogger()
	e := NewSpanExtractor(ExtractorConfig{BatchConcurrency: 3}, logger, nil)

	var windows []phi.Window
	for i := 0; i < 20; i++ {
		windows = append(windows, phi.Window{
			DocumentID: fmt.Sprintf("doc-%02d", i),
			Start:      i * 10,
			Text:       fmt.Sprintf("Seen by Dr Jones%d", i),
			Label:      "DOCTOR:Jones",
		})
	}

	results, err := e.ExtractBatch(context.Background(), windows)
	require.NoError(t, err)
	require.Len(t, results, len(windows))
	for i, w := range windows {
		assert.Equal(t, e.Extract(w), results[i])
		require.Len(t, results[i], 1)
		assert.Equal(t, w.DocumentID, results[i][0].DocumentID)
	}
}

func TestExtractBatch_Empty(t *testing.T) {
	e := NewSpanExtractor(ExtractorConfig{}, nil, nil)
	results, err := e.ExtractBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExtractBatch_Cancelled(t *testing.T) {
	e := NewSpanExtractor(ExtractorConfig{BatchConcurrency: 1}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.ExtractBatch(ctx, []phi.Window{{DocumentID: "d1", Text: "x", Label: phi.NullLabel}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}

func TestLocateAll(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {3, 5}}, locateAll("ab ab", "ab"))
	assert.Equal(t, [][2]int{{1, 3}}, locateAll("éab", "ab"))
	assert.Nil(t, locateAll("abc", ""))
	assert.Nil(t, locateAll("abc", "zz"))
}

//Personal.AI order the ending
