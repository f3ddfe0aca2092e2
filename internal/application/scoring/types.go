// Package scoring compares predicted annotation sets with ground truth.
// Spans match on exact (document, start, end); the normalization-aware mode
// additionally requires the normalized value to match.
package scoring

import (
	"github.com/turtacn/deid-reconcile/internal/domain/phi"
)

// ============================================================================
// Reasons
// ============================================================================

// Error row reasons.
const (
	ReasonNotInAnswer  = "not in answer"
	ReasonNotPredicted = "not predicted"
	ReasonTypeWrong    = "type wrong"
	ReasonNormWrong    = "norm wrong"
	ReasonPredWrong    = "pred wrong"
)

// Placeholder cells of the report layout.
const (
	noValue = "no value"
	noTime  = "no time"
	noMatch = " "
)

// DefaultNormCategories are the categories the normalization-aware mode
// scores when none are given.
var DefaultNormCategories = []phi.Category{phi.Time, phi.Duration, phi.Set, phi.Date}

// ============================================================================
// DTOs
// ============================================================================

// Counts holds confusion counts and the derived micro scores.
type Counts struct {
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ErrorRow is one false positive or false negative.  Counterpart holds the
// other side's category, normalized value or text depending on Reason.
// Cells is the row as exported to reports.
type ErrorRow struct {
	Record      phi.Record `json:"-"`
	Reason      string     `json:"reason"`
	Counterpart string     `json:"counterpart"`
	Cells       []string   `json:"cells"`
}

// MicroResult is the outcome of span-level scoring.
type MicroResult struct {
	Counts
	FalsePositives []ErrorRow   `json:"false_positives"`
	FalseNegatives []ErrorRow   `json:"false_negatives"`
	TruePositives  []phi.Record `json:"-"`
}

// CategoryScore is the per-category outcome of macro scoring.
type CategoryScore struct {
	Category phi.Category `json:"category"`
	Counts
}

// MacroResult is the unweighted mean of per-category F1.
type MacroResult struct {
	MacroF1    float64         `json:"macro_f1"`
	Categories []CategoryScore `json:"categories"`
}

// NormResult is the outcome of normalization-aware scoring.
type NormResult struct {
	Counts
	Categories     []phi.Category `json:"categories"`
	FalsePositives []ErrorRow     `json:"false_positives"`
	FalseNegatives []ErrorRow     `json:"false_negatives"`
	TruePositives  []phi.Record   `json:"-"`
}

// ============================================================================
// Report layouts
// ============================================================================

// Column headers of the exported sheets.
var (
	MicroFPHeader = []string{"file_name", "pred_category", "start_pos", "end_pos", "pred_content", "pred_norm_time", "gt_category", "error"}
	MicroFNHeader = []string{"file_name", "gt_category", "start_pos", "end_pos", "gt_content", "gt_norm_time", "pred_category", "error"}
	MicroTPHeader = []string{"file_name", "pred_category", "start_pos", "end_pos", "pred_content"}

	NormFPHeader = []string{"file_name", "pred_category", "start_pos", "end_pos", "pred_content", "pred_norm", "error", "gt"}
	NormFNHeader = []string{"file_name", "gt_category", "start_pos", "end_pos", "gt_content", "gt_norm_time", "error", "pred"}
	NormTPHeader = []string{"file_name", "pred_category", "start_pos", "end_pos", "pred_content", "pred_norm"}
)

// microRow lays out a span-level error: six-field records gain the
// counterpart and reason, shorter records also gain a "no time" filler so
// the columns line up.
func microRow(r phi.Record, reason, counterpart string) ErrorRow {
	if counterpart == "" {
		counterpart = noValue
	}
	cells := append([]string{}, r.Fields...)
	if len(r.Fields) != 6 {
		cells = append(cells, noTime)
	}
	cells = append(cells, counterpart, reason)
	return ErrorRow{Record: r, Reason: reason, Counterpart: counterpart, Cells: cells}
}

// normRow lays out a normalization-aware error: reason, then counterpart.
func normRow(r phi.Record, reason, counterpart string) ErrorRow {
	cells := append(append([]string{}, r.Fields...), reason, counterpart)
	return ErrorRow{Record: r, Reason: reason, Counterpart: counterpart, Cells: cells}
}

// ratios derives precision, recall and F1; each is 0 when its denominator is.
func (c *Counts) ratios() {
	c.Precision, c.Recall, c.F1 = prf(c.TP, c.FP, c.FN)
}

func prf(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

//Personal.AI order the ending
