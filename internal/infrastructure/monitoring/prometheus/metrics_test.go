package prometheus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineMetrics_AllFamiliesRegistered(t *testing.T) {
	c := newTestCollector(t)
	m := NewPipelineMetrics(c)
	require.NotNil(t, m)

	m.WindowsProcessed.WithLabelValues("ok").Inc()
	m.MentionsEmitted.WithLabelValues("DATE").Add(2)
	m.LabelsRejected.WithLabelValues("AGE").Inc()
	m.PenalizedTotal.WithLabelValues("organization").Inc()
	m.UnresolvedTies.WithLabelValues().Inc()
	m.ScoreF1.WithLabelValues("micro").Set(0.5)
	m.ErrorRows.WithLabelValues("fp", "type wrong").Inc()

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_windows_processed_total{outcome="ok"} 1`)
	assert.Contains(t, out, `test_unit_mentions_emitted_total{category="DATE"} 2`)
	assert.Contains(t, out, `test_unit_labels_rejected_total{category="AGE"} 1`)
	assert.Contains(t, out, `test_unit_vote_penalized_total{rule="organization"} 1`)
	assert.Contains(t, out, "test_unit_vote_unresolved_ties_total 1")
	assert.Contains(t, out, `test_unit_score_f1{mode="micro"} 0.5`)
	assert.Contains(t, out, `test_unit_score_error_rows_total{kind="fp",reason="type wrong"} 1`)
}

func TestNewPipelineMetrics_NilCollector(t *testing.T) {
	m := NewPipelineMetrics(nil)
	assert.NotPanics(t, func() { m.DroppedGroups.WithLabelValues().Inc() })
	assert.NotNil(t, NewNoopPipelineMetrics())
}

//Personal.AI order the ending
