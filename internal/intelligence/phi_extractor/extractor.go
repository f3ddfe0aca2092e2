// Package phi_extractor turns raw per-window model output into located PHI
// mentions.  Label strings are repaired before offsets are resolved: segments
// the model missed are detected from the text, implausible segments are
// rejected and truncated contents are completed against the window.
package phi_extractor

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// ExtractorConfig holds tuneable parameters of the extractor.
type ExtractorConfig struct {
	// BatchConcurrency bounds the windows extracted in parallel.
	BatchConcurrency int `json:"batch_concurrency" yaml:"batch_concurrency"`
	// WarnNonNFC logs windows whose text is not NFC normalised.  Offsets are
	// always computed on the text as given.
	WarnNonNFC bool `json:"warn_non_nfc" yaml:"warn_non_nfc"`
}

// DefaultExtractorConfig returns the defaults used by the CLI.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{BatchConcurrency: 4, WarnNonNFC: true}
}

// ---------------------------------------------------------------------------
// SpanExtractor interface
// ---------------------------------------------------------------------------

// SpanExtractor locates the PHI named by a window's label string inside the
// window text.
type SpanExtractor interface {
	// Extract returns the mentions of one window with document-relative
	// offsets.  Data problems never fail; offending segments are skipped.
	Extract(w phi.Window) []phi.Mention
	// ExtractBatch runs Extract over windows with bounded concurrency and
	// returns the results in input order.
	ExtractBatch(ctx context.Context, windows []phi.Window) ([][]phi.Mention, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type spanExtractorImpl struct {
	config  ExtractorConfig
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewSpanExtractor constructs an extractor.  A nil logger or metrics value is
// replaced by a no-op implementation.
func NewSpanExtractor(config ExtractorConfig, logger logging.Logger, metrics *prometheus.PipelineMetrics) SpanExtractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = 1
	}
	return &spanExtractorImpl{config: config, logger: logger.Named("extractor"), metrics: metrics}
}

// ---------------------------------------------------------------------------
// Extract
// ---------------------------------------------------------------------------

func (e *spanExtractorImpl) Extract(w phi.Window) []phi.Mention {
	if e.config.WarnNonNFC && !norm.NFC.IsNormalString(w.Text) {
		e.logger.Warn("window text is not NFC normalised",
			logging.String(logging.FieldDocID, w.DocumentID), logging.Int("start", w.Start))
	}

	// 1. Text-driven detection rewrites the label string.
	label, added := Detect(w.Text, w.Label)
	for _, d := range added {
		e.metrics.DetectionsAdded.WithLabelValues(string(d.Category)).Inc()
	}

	// 2. Parse, validate and complete; the first category seen for a content
	//    string wins.
	index := common.NewOrderedMap[string, phi.Category]()
	for _, t := range phi.ParseLabelString(label) {
		if !ValidateLabel(t.Category, t.Content) {
			e.metrics.LabelsRejected.WithLabelValues(string(t.Category)).Inc()
			continue
		}
		revised := ReviseContent(w.Text, t)
		if revised.Content != t.Content {
			e.metrics.ContentsCompleted.WithLabelValues(string(t.Category)).Inc()
		}
		index.SetIfAbsent(revised.Content, phi.Category(strings.TrimSpace(string(revised.Category))))
	}

	// 3. Locate every literal occurrence of every content string.
	var mentions []phi.Mention
	for _, content := range index.Keys() {
		category, _ := index.Get(content)
		if content == "" {
			e.logger.Debug("skipping empty content",
				logging.String(logging.FieldDocID, w.DocumentID), logging.String(logging.FieldCategory, string(category)))
			continue
		}
		for _, span := range locateAll(w.Text, content) {
			mentions = append(mentions, phi.Mention{
				DocumentID: w.DocumentID,
				Category:   category,
				Start:      span[0] + w.Start,
				End:        span[1] + w.Start,
				Text:       content,
			})
			e.metrics.MentionsEmitted.WithLabelValues(string(category)).Inc()
		}
	}
	return mentions
}

// ---------------------------------------------------------------------------
// ExtractBatch
// ---------------------------------------------------------------------------

func (e *spanExtractorImpl) ExtractBatch(ctx context.Context, windows []phi.Window) ([][]phi.Mention, error) {
	results := make([][]phi.Mention, len(windows))
	if len(windows) == 0 {
		return results, nil
	}

	sem := make(chan struct{}, e.config.BatchConcurrency)
	var wg sync.WaitGroup

loop:
	for i := range windows {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.Extract(windows[idx])
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// locateAll returns the character spans of every non-overlapping occurrence
// of the literal needle in text.
func locateAll(text, needle string) [][2]int {
	if needle == "" {
		return nil
	}
	needleLen := utf8.RuneCountInString(needle)
	var spans [][2]int
	byteFrom, runeFrom := 0, 0
	for {
		i := strings.Index(text[byteFrom:], needle)
		if i < 0 {
			return spans
		}
		start := runeFrom + utf8.RuneCountInString(text[byteFrom:byteFrom+i])
		spans = append(spans, [2]int{start, start + needleLen})
		byteFrom += i + len(needle)
		runeFrom = start + needleLen
	}
}

//Personal.AI order the ending
