package pipeline

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/deid-reconcile/internal/application/scoring"
	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/report"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// Sheet names of the exported workbook.
const (
	SheetSummary        = "summary"
	SheetFalsePositives = "false_positives"
	SheetFalseNegatives = "false_negatives"
	SheetTruePositives  = "true_positives"
)

// EvaluateRequest names the files of one scoring run.
type EvaluateRequest struct {
	PredPath  string
	TruthPath string
	// Workbook, when set, receives the xlsx report.
	Workbook string
	// Norm selects normalization-aware scoring over Categories.
	Norm       bool
	Categories []string
}

// EvaluateResult holds the scores of one run.  Micro and Macro are set for
// span scoring, Norm for normalization-aware scoring.
type EvaluateResult struct {
	PredRecords  int                  `json:"pred_records"`
	TruthRecords int                  `json:"truth_records"`
	PredSkipped  int                  `json:"pred_skipped"`
	TruthSkipped int                  `json:"truth_skipped"`
	Micro        *scoring.MicroResult `json:"micro,omitempty"`
	Macro        *scoring.MacroResult `json:"macro,omitempty"`
	Norm         *scoring.NormResult  `json:"norm,omitempty"`
	Workbook     string               `json:"workbook,omitempty"`
}

// EvaluationRunner loads annotation files and scores them.
type EvaluationRunner struct {
	evaluator scoring.Evaluator
	logger    logging.Logger
}

// NewEvaluationRunner wires a runner around evaluator.
func NewEvaluationRunner(evaluator scoring.Evaluator, logger logging.Logger) *EvaluationRunner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EvaluationRunner{evaluator: evaluator, logger: logger.Named("evaluate")}
}

// Run scores req.PredPath against req.TruthPath.  Two empty inputs are an
// error; one empty side scores normally.
func (r *EvaluationRunner) Run(_ context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	start := time.Now()

	var categories []phi.Category
	if req.Norm {
		var err error
		if categories, err = ParseCategories(req.Categories); err != nil {
			return nil, err
		}
	}

	pred, predSkipped, err := scoring.LoadRecordsFile(req.PredPath)
	if err != nil {
		return nil, err
	}
	truth, truthSkipped, err := scoring.LoadRecordsFile(req.TruthPath)
	if err != nil {
		return nil, err
	}
	if len(pred) == 0 && len(truth) == 0 {
		return nil, errors.New(errors.ErrCodeScoreNoData, "both annotation files are empty").
			WithDetail("pred=" + req.PredPath + " truth=" + req.TruthPath)
	}

	res := &EvaluateResult{
		PredRecords:  len(pred),
		TruthRecords: len(truth),
		PredSkipped:  predSkipped,
		TruthSkipped: truthSkipped,
	}
	if predSkipped+truthSkipped > 0 {
		r.logger.Warn("skipped malformed annotation rows",
			logging.Int("pred_skipped", predSkipped), logging.Int("truth_skipped", truthSkipped))
	}

	var sheets []report.Sheet
	if req.Norm {
		res.Norm = r.evaluator.EvaluateNorm(pred, truth, categories)
		sheets = NormSheets(res.Norm)
	} else {
		res.Micro = r.evaluator.EvaluateMicro(pred, truth)
		res.Macro = r.evaluator.EvaluateMacro(pred, truth)
		sheets = MicroSheets(res.Micro, res.Macro)
	}

	if req.Workbook != "" {
		if err := report.WriteWorkbook(req.Workbook, sheets...); err != nil {
			return nil, err
		}
		res.Workbook = req.Workbook
		r.logger.Info("report written", logging.String(logging.FieldFile, req.Workbook))
	}
	logging.LogOperationDuration(r.logger, "evaluate", start)
	return res, nil
}

// ParseCategories converts names to categories.  Names are trimmed and upper
// cased; an unknown name is an error.  No names mean the default set.
func ParseCategories(names []string) ([]phi.Category, error) {
	var out []phi.Category
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		c, ok := phi.ParseCategory(n)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeScoreCategories, "unknown category %q", n)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return append([]phi.Category(nil), scoring.DefaultNormCategories...), nil
	}
	return out, nil
}

// MicroSheets lays out span scoring as summary, FP, FN and TP sheets.
func MicroSheets(micro *scoring.MicroResult, macro *scoring.MacroResult) []report.Sheet {
	summary := report.Sheet{Name: SheetSummary, Header: []string{"metric", "value"}}
	summary.Rows = append(summary.Rows, countRows(micro.Counts)...)
	if macro != nil {
		summary.Rows = append(summary.Rows, []string{"macro_f1", formatScore(macro.MacroF1)})
		for _, c := range macro.Categories {
			summary.Rows = append(summary.Rows, []string{"f1_" + string(c.Category), formatScore(c.F1)})
		}
	}
	return []report.Sheet{
		summary,
		{Name: SheetFalsePositives, Header: scoring.MicroFPHeader, Rows: errorCells(micro.FalsePositives)},
		{Name: SheetFalseNegatives, Header: scoring.MicroFNHeader, Rows: errorCells(micro.FalseNegatives)},
		{Name: SheetTruePositives, Header: scoring.MicroTPHeader, Rows: recordCells(micro.TruePositives)},
	}
}

// NormSheets lays out normalization-aware scoring.
func NormSheets(res *scoring.NormResult) []report.Sheet {
	cats := make([]string, len(res.Categories))
	for i, c := range res.Categories {
		cats[i] = string(c)
	}
	summary := report.Sheet{Name: SheetSummary, Header: []string{"metric", "value"}}
	summary.Rows = append(countRows(res.Counts), []string{"categories", strings.Join(cats, ",")})
	return []report.Sheet{
		summary,
		{Name: SheetFalsePositives, Header: scoring.NormFPHeader, Rows: errorCells(res.FalsePositives)},
		{Name: SheetFalseNegatives, Header: scoring.NormFNHeader, Rows: errorCells(res.FalseNegatives)},
		{Name: SheetTruePositives, Header: scoring.NormTPHeader, Rows: recordCells(res.TruePositives)},
	}
}

func countRows(c scoring.Counts) [][]string {
	return [][]string{
		{"tp", strconv.Itoa(c.TP)},
		{"fp", strconv.Itoa(c.FP)},
		{"fn", strconv.Itoa(c.FN)},
		{"precision", formatScore(c.Precision)},
		{"recall", formatScore(c.Recall)},
		{"f1", formatScore(c.F1)},
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func errorCells(rows []scoring.ErrorRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Cells
	}
	return out
}

func recordCells(records []phi.Record) [][]string {
	out := make([][]string, len(records))
	for i, r := range records {
		out[i] = r.Fields
	}
	return out
}

//Personal.AI order the ending
