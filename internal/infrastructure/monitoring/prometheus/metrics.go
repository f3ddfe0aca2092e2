package prometheus

// PipelineMetrics holds the metric families recorded by the annotate, vote,
// evaluate and dataset stages.
type PipelineMetrics struct {
	// Extraction
	WindowsProcessed   CounterVec   // labels: outcome (ok|skipped)
	MentionsEmitted    CounterVec   // labels: category
	LabelsRejected     CounterVec   // labels: category
	DetectionsAdded    CounterVec   // labels: category
	ContentsCompleted  CounterVec   // labels: category
	ExtractionDuration HistogramVec // labels: stage

	// Voting
	CandidatesTotal   GaugeVec   // labels: phase (unique|start_groups|end_groups)
	PenalizedTotal    CounterVec // labels: rule (organization|date)
	DroppedGroups     CounterVec
	UnresolvedTies    CounterVec
	FinalizedMentions GaugeVec // labels: category

	// Scoring
	ScorePrecision GaugeVec // labels: mode (micro|norm)
	ScoreRecall    GaugeVec // labels: mode
	ScoreF1        GaugeVec // labels: mode
	MacroF1        GaugeVec
	CategoryF1     GaugeVec   // labels: category
	ErrorRows      CounterVec // labels: kind (fp|fn), reason

	// Sinks and dataset
	SinkRows       CounterVec // labels: sink, outcome
	DatasetSamples CounterVec // labels: source (original|sliced|spliced|augment)
}

// DefaultStageBuckets suit whole-corpus stage durations in seconds.
var DefaultStageBuckets = []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300}

// NewPipelineMetrics registers every pipeline metric family on collector.
func NewPipelineMetrics(collector MetricsCollector) *PipelineMetrics {
	if collector == nil {
		collector = NewNoopCollector()
	}
	return &PipelineMetrics{
		WindowsProcessed:   collector.RegisterCounter("windows_processed_total", "Prediction windows read, by outcome.", "outcome"),
		MentionsEmitted:    collector.RegisterCounter("mentions_emitted_total", "Mentions located in window text.", "category"),
		LabelsRejected:     collector.RegisterCounter("labels_rejected_total", "Label triples rejected by validation.", "category"),
		DetectionsAdded:    collector.RegisterCounter("detections_added_total", "Labels added by text-driven detection.", "category"),
		ContentsCompleted:  collector.RegisterCounter("contents_completed_total", "Label contents extended by completion.", "category"),
		ExtractionDuration: collector.RegisterHistogram("stage_duration_seconds", "Wall time per pipeline stage.", DefaultStageBuckets, "stage"),

		CandidatesTotal:   collector.RegisterGauge("vote_candidates", "Candidate keys per voting phase.", "phase"),
		PenalizedTotal:    collector.RegisterCounter("vote_penalized_total", "Candidate count decrements, by rule.", "rule"),
		DroppedGroups:     collector.RegisterCounter("vote_dropped_groups_total", "Start groups whose every candidate was discarded."),
		UnresolvedTies:    collector.RegisterCounter("vote_unresolved_ties_total", "Winner selections that kept the first candidate on a full tie."),
		FinalizedMentions: collector.RegisterGauge("vote_finalized_mentions", "Finalized annotations by category.", "category"),

		ScorePrecision: collector.RegisterGauge("score_precision", "Precision of the last evaluation.", "mode"),
		ScoreRecall:    collector.RegisterGauge("score_recall", "Recall of the last evaluation.", "mode"),
		ScoreF1:        collector.RegisterGauge("score_f1", "F1 of the last evaluation.", "mode"),
		MacroF1:        collector.RegisterGauge("score_macro_f1", "Unweighted mean of per-category F1."),
		CategoryF1:     collector.RegisterGauge("score_category_f1", "Per-category F1.", "category"),
		ErrorRows:      collector.RegisterCounter("score_error_rows_total", "Scoring report rows by kind and reason.", "kind", "reason"),

		SinkRows:       collector.RegisterCounter("sink_rows_total", "Rows delivered to sinks.", "sink", "outcome"),
		DatasetSamples: collector.RegisterCounter("dataset_samples_total", "Training samples written, by source.", "source"),
	}
}

// NewNoopPipelineMetrics returns PipelineMetrics that record nothing.
func NewNoopPipelineMetrics() *PipelineMetrics {
	return NewPipelineMetrics(NewNoopCollector())
}

//Personal.AI order the ending
