package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/deid-reconcile/internal/application/pipeline"
	"github.com/turtacn/deid-reconcile/internal/application/scoring"
)

type evaluateOptions struct {
	pred       string
	truth      string
	xlsx       string
	categories []string
}

// NewEvaluateCmd creates the span scoring command.
func NewEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score an answer file against ground truth",
		Long: "Computes micro precision, recall and F1 over (document, category, start, end)\n" +
			"keys plus per-category macro F1.  False positives, false negatives and true\n" +
			"positives can be exported to an xlsx workbook.",
		Example: "  deidrecon evaluate --pred answer.txt --truth truth.txt --xlsx report.xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runEvaluate(cmd, cliCtx, opts, false)
		},
	}
	addEvaluateFlags(cmd, opts)
	return cmd
}

// NewEvaluateNormCmd creates the normalization-aware scoring command.
func NewEvaluateNormCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate-norm",
		Short: "Score normalized values of temporal annotations",
		Long: "Scores only the target categories.  A prediction is correct when its category,\n" +
			"offsets and normalized value all match the ground truth row.",
		Example: "  deidrecon evaluate-norm --pred answer.txt --truth truth.txt --categories TIME,DATE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if len(opts.categories) == 0 {
				opts.categories = cliCtx.Config.Evaluation.NormCategories
			}
			return runEvaluate(cmd, cliCtx, opts, true)
		},
	}
	addEvaluateFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&opts.categories, "categories", nil, "target categories (default: evaluation.norm_categories)")
	return cmd
}

func addEvaluateFlags(cmd *cobra.Command, opts *evaluateOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.pred, "pred", "", "predicted annotation file (required)")
	f.StringVar(&opts.truth, "truth", "", "ground truth annotation file (required)")
	f.StringVar(&opts.xlsx, "xlsx", "", "write the report workbook to this path; a bare file name is placed in evaluation.report_dir")
	_ = cmd.MarkFlagRequired("pred")
	_ = cmd.MarkFlagRequired("truth")
}

func runEvaluate(cmd *cobra.Command, cliCtx *CLIContext, opts *evaluateOptions, norm bool) error {
	workbook := opts.xlsx
	if workbook != "" && filepath.Base(workbook) == workbook {
		workbook = filepath.Join(cliCtx.Config.Evaluation.ReportDir, workbook)
	}

	runner := pipeline.NewEvaluationRunner(scoring.NewEvaluator(cliCtx.Logger, cliCtx.Metrics), cliCtx.Logger)
	res, err := runner.Run(cmd.Context(), pipeline.EvaluateRequest{
		PredPath:   opts.pred,
		TruthPath:  opts.truth,
		Workbook:   workbook,
		Norm:       norm,
		Categories: opts.categories,
	})
	if err != nil {
		return err
	}
	return PrintResult(cmd, evaluateView{res})
}

// evaluateView renders an EvaluateResult.
type evaluateView struct {
	*pipeline.EvaluateResult
}

func (v evaluateView) String() string {
	var sb strings.Builder
	c := v.counts()
	fmt.Fprintf(&sb, "precision: %.4f\nrecall:    %.4f\nf1:        %.4f\n", c.Precision, c.Recall, c.F1)
	fmt.Fprintf(&sb, "tp=%d fp=%d fn=%d\n", c.TP, c.FP, c.FN)
	if v.Macro != nil {
		fmt.Fprintf(&sb, "macro f1:  %.4f\n", v.Macro.MacroF1)
	}
	if v.Norm != nil {
		cats := make([]string, len(v.Norm.Categories))
		for i, cat := range v.Norm.Categories {
			cats[i] = string(cat)
		}
		fmt.Fprintf(&sb, "categories: %s\n", strings.Join(cats, ","))
	}
	if v.Workbook != "" {
		fmt.Fprintf(&sb, "report: %s\n", v.Workbook)
	}
	return sb.String()
}

func (v evaluateView) counts() scoring.Counts {
	if v.Norm != nil {
		return v.Norm.Counts
	}
	if v.Micro != nil {
		return v.Micro.Counts
	}
	return scoring.Counts{}
}

func (v evaluateView) TableHeaders() []string {
	return []string{"category", "tp", "fp", "fn", "precision", "recall", "f1"}
}

func (v evaluateView) TableRows() [][]string {
	row := func(name string, c scoring.Counts) []string {
		return []string{
			name,
			strconv.Itoa(c.TP), strconv.Itoa(c.FP), strconv.Itoa(c.FN),
			fmt.Sprintf("%.4f", c.Precision), fmt.Sprintf("%.4f", c.Recall), fmt.Sprintf("%.4f", c.F1),
		}
	}
	var rows [][]string
	if v.Macro != nil {
		for _, cs := range v.Macro.Categories {
			rows = append(rows, row(string(cs.Category), cs.Counts))
		}
	}
	return append(rows, row("ALL", v.counts()))
}

//Personal.AI order the ending
