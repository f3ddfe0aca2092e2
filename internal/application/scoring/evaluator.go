package scoring

import (
	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/types/common"
)

// ============================================================================
// Evaluator interface
// ============================================================================

// Evaluator scores a predicted annotation set against ground truth.  Inputs
// are never modified.  For duplicate keys the last row wins, kept at the
// position of the first.
type Evaluator interface {
	// EvaluateMicro computes span-level precision, recall and F1.
	EvaluateMicro(pred, truth []phi.Record) *MicroResult
	// EvaluateMacro computes the unweighted mean of per-category F1 over
	// every category present on either side.
	EvaluateMacro(pred, truth []phi.Record) *MacroResult
	// EvaluateNorm scores only the given categories and also requires the
	// normalized value to match.  Nil categories mean DefaultNormCategories.
	EvaluateNorm(pred, truth []phi.Record, categories []phi.Category) *NormResult
}

type evaluatorImpl struct {
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(logger logging.Logger, metrics *prometheus.PipelineMetrics) Evaluator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	return &evaluatorImpl{logger: logger.Named("scoring"), metrics: metrics}
}

// ============================================================================
// Indexes
// ============================================================================

type spanIndex = common.OrderedMap[phi.SpanKey, phi.Record]

func indexBySpan(records []phi.Record, keep func(phi.Record) bool) *spanIndex {
	idx := common.NewOrderedMap[phi.SpanKey, phi.Record]()
	for _, r := range records {
		if keep == nil || keep(r) {
			idx.Set(r.Key(), r)
		}
	}
	return idx
}

// normKey adds the normalized value to a span key.  A record without a
// normalized column never equals one with an empty value.
type normKey struct {
	Span    phi.SpanKey
	Norm    string
	HasNorm bool
}

func keyWithNorm(r phi.Record) normKey {
	norm, ok := r.Normalized()
	return normKey{Span: r.Key(), Norm: norm, HasNorm: ok}
}

// ============================================================================
// Micro
// ============================================================================

func (e *evaluatorImpl) EvaluateMicro(pred, truth []phi.Record) *MicroResult {
	predIdx := indexBySpan(pred, nil)
	trueIdx := indexBySpan(truth, nil)
	res := &MicroResult{}

	for _, key := range predIdx.Keys() {
		p, _ := predIdx.Get(key)
		t, found := trueIdx.Get(key)
		switch {
		case !found:
			res.FP++
			res.FalsePositives = append(res.FalsePositives, microRow(p, ReasonNotInAnswer, ""))
		case p.Category() != t.Category():
			res.FP++
			res.FalsePositives = append(res.FalsePositives, microRow(p, ReasonTypeWrong, string(t.Category())))
		default:
			res.TP++
			res.TruePositives = append(res.TruePositives, p)
		}
	}

	// A type mismatch is listed on both sides but only counted once, as a
	// false positive.
	for _, key := range trueIdx.Keys() {
		t, _ := trueIdx.Get(key)
		p, found := predIdx.Get(key)
		switch {
		case !found:
			res.FN++
			res.FalseNegatives = append(res.FalseNegatives, microRow(t, ReasonNotPredicted, ""))
		case p.Category() != t.Category():
			res.FalseNegatives = append(res.FalseNegatives, microRow(t, ReasonTypeWrong, string(p.Category())))
		}
	}

	res.ratios()
	e.record("micro", res.Counts, res.FalsePositives, res.FalseNegatives)
	return res
}

// ============================================================================
// Macro
// ============================================================================

func (e *evaluatorImpl) EvaluateMacro(pred, truth []phi.Record) *MacroResult {
	predIdx := indexBySpan(pred, nil)
	trueIdx := indexBySpan(truth, nil)
	stats := common.NewOrderedMap[phi.Category, *CategoryScore]()
	statFor := func(c phi.Category) *CategoryScore {
		s, ok := stats.Get(c)
		if !ok {
			s = &CategoryScore{Category: c}
			stats.Set(c, s)
		}
		return s
	}

	for _, key := range predIdx.Keys() {
		p, _ := predIdx.Get(key)
		s := statFor(p.Category())
		if t, found := trueIdx.Get(key); found && t.Category() == p.Category() {
			s.TP++
		} else {
			s.FP++
		}
	}
	for _, key := range trueIdx.Keys() {
		t, _ := trueIdx.Get(key)
		s := statFor(t.Category())
		if p, found := predIdx.Get(key); !found || p.Category() != t.Category() {
			s.FN++
		}
	}

	res := &MacroResult{}
	var sum float64
	for _, s := range stats.Values() {
		s.ratios()
		sum += s.F1
		res.Categories = append(res.Categories, *s)
		e.metrics.CategoryF1.WithLabelValues(string(s.Category)).Set(s.F1)
	}
	if len(res.Categories) > 0 {
		res.MacroF1 = sum / float64(len(res.Categories))
	}
	e.metrics.MacroF1.WithLabelValues().Set(res.MacroF1)
	e.logger.Info("macro scoring finished",
		logging.Int("categories", len(res.Categories)), logging.Float64("macro_f1", res.MacroF1))
	return res
}

// ============================================================================
// Normalization-aware
// ============================================================================

func (e *evaluatorImpl) EvaluateNorm(pred, truth []phi.Record, categories []phi.Category) *NormResult {
	if len(categories) == 0 {
		categories = DefaultNormCategories
	}
	targets := make(map[phi.Category]struct{}, len(categories))
	for _, c := range categories {
		targets[c] = struct{}{}
	}
	keep := func(r phi.Record) bool {
		_, ok := targets[r.Category()]
		return ok
	}

	p := newNormSide(pred, keep)
	t := newNormSide(truth, keep)
	res := &NormResult{Categories: append([]phi.Category{}, categories...)}

	for _, key := range p.byNorm.Keys() {
		rec, _ := p.byNorm.Get(key)
		if t.byNorm.Has(key) {
			res.TP++
			res.TruePositives = append(res.TruePositives, rec)
			continue
		}
		res.FP++
		res.FalsePositives = append(res.FalsePositives, t.explain(rec, key, ReasonNotInAnswer))
	}
	for _, key := range t.byNorm.Keys() {
		rec, _ := t.byNorm.Get(key)
		if p.byNorm.Has(key) {
			continue
		}
		res.FN++
		res.FalseNegatives = append(res.FalseNegatives, p.explain(rec, key, ReasonNotPredicted))
	}

	res.ratios()
	e.record("norm", res.Counts, res.FalsePositives, res.FalseNegatives)
	return res
}

// normSide holds one side's records under the three lookup keys.
type normSide struct {
	byNorm  *common.OrderedMap[normKey, phi.Record]
	bySpan  map[phi.SpanKey]phi.Record
	byStart map[phi.StartKey]phi.Record
}

func newNormSide(records []phi.Record, keep func(phi.Record) bool) *normSide {
	s := &normSide{
		byNorm:  common.NewOrderedMap[normKey, phi.Record](),
		bySpan:  make(map[phi.SpanKey]phi.Record),
		byStart: make(map[phi.StartKey]phi.Record),
	}
	for _, r := range records {
		if !keep(r) {
			continue
		}
		s.byNorm.Set(keyWithNorm(r), r)
		s.bySpan[r.Key()] = r
		s.byStart[r.StartKey()] = r
	}
	return s
}

// explain classifies a record of the other side that has no exact match on
// this side: same span means the normalization differs, same start means
// the span differs, otherwise there is no overlap.
func (s *normSide) explain(rec phi.Record, key normKey, miss string) ErrorRow {
	if other, ok := s.bySpan[key.Span]; ok {
		norm, _ := other.Normalized()
		return normRow(rec, ReasonNormWrong, norm)
	}
	if other, ok := s.byStart[rec.StartKey()]; ok {
		return normRow(rec, ReasonPredWrong, other.Text())
	}
	return normRow(rec, miss, noMatch)
}

// ============================================================================
// Metrics
// ============================================================================

func (e *evaluatorImpl) record(mode string, c Counts, fps, fns []ErrorRow) {
	e.metrics.ScorePrecision.WithLabelValues(mode).Set(c.Precision)
	e.metrics.ScoreRecall.WithLabelValues(mode).Set(c.Recall)
	e.metrics.ScoreF1.WithLabelValues(mode).Set(c.F1)
	for _, r := range fps {
		e.metrics.ErrorRows.WithLabelValues("fp", r.Reason).Inc()
	}
	for _, r := range fns {
		e.metrics.ErrorRows.WithLabelValues("fn", r.Reason).Inc()
	}
	e.logger.Info("scoring finished",
		logging.String("mode", mode),
		logging.Int("tp", c.TP), logging.Int("fp", c.FP), logging.Int("fn", c.FN),
		logging.Float64("precision", c.Precision),
		logging.Float64("recall", c.Recall),
		logging.Float64("f1", c.F1))
}

//Personal.AI order the ending
