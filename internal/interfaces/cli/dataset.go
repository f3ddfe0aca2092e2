package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/deid-reconcile/internal/application/dataset"
	"github.com/turtacn/deid-reconcile/internal/application/pipeline"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// NewDatasetCmd creates the dataset command group.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build training and inference datasets",
	}
	cmd.AddCommand(newDatasetBuildCmd(), newDatasetSegmentCmd(), newDatasetNormPairsCmd())
	return cmd
}

type datasetBuildOptions struct {
	annotations string
	reports     string
	out         string
	mode        string
	augment     bool
}

func newDatasetBuildCmd() *cobra.Command {
	opts := &datasetBuildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Split annotated reports into train and test sequence pairs",
		Long: "Reads an answer file and the reports named <document id>.txt under --reports,\n" +
			"splits the documents into train and test sets and writes one sample per row\n" +
			"to <out>_train.tsv and <out>_test.tsv.",
		Example: "  deidrecon dataset build --annotations answer.txt --reports reports/ --out ner.tsv --mode spliced --augment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			mode, err := dataset.ParseMode(opts.mode)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid --mode")
			}
			runner := pipeline.NewDatasetRunner(cliCtx.Config.Dataset, cliCtx.Logger, cliCtx.Metrics)
			res, err := runner.Build(cmd.Context(), pipeline.BuildRequest{
				Annotations: opts.annotations,
				ReportDir:   opts.reports,
				Output:      opts.out,
				Mode:        mode,
				Augment:     opts.augment,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, buildView{res})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.annotations, "annotations", "", "answer file with the labelled spans (required)")
	f.StringVar(&opts.reports, "reports", "", "directory holding the report texts (required)")
	f.StringVar(&opts.out, "out", "dataset.tsv", "base output path")
	f.StringVar(&opts.mode, "mode", string(dataset.ModeOriginal), "sample mode: original|sliced|spliced")
	f.BoolVar(&opts.augment, "augment", false, "add synthetic variants of samples with rare categories")
	_ = cmd.MarkFlagRequired("annotations")
	_ = cmd.MarkFlagRequired("reports")
	return cmd
}

type buildView struct {
	*pipeline.BuildResult
}

func (v buildView) String() string {
	return fmt.Sprintf("train: %d samples from %d documents -> %s\ntest:  %d samples from %d documents -> %s\n",
		v.TrainSamples, v.TrainDocs, v.TrainPath, v.TestSamples, v.TestDocs, v.TestPath)
}

func (v buildView) TableHeaders() []string { return []string{"split", "documents", "samples", "path"} }

func (v buildView) TableRows() [][]string {
	return [][]string{
		{"train", strconv.Itoa(v.TrainDocs), strconv.Itoa(v.TrainSamples), v.TrainPath},
		{"test", strconv.Itoa(v.TestDocs), strconv.Itoa(v.TestSamples), v.TestPath},
	}
}

type datasetSegmentOptions struct {
	reports []string
	out     string
}

func newDatasetSegmentCmd() *cobra.Command {
	opts := &datasetSegmentOptions{}
	cmd := &cobra.Command{
		Use:     "segment",
		Short:   "Cut unlabelled reports into inference windows",
		Example: "  deidrecon dataset segment --reports 'validation/*.txt' --out infer.tsv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			runner := pipeline.NewDatasetRunner(cliCtx.Config.Dataset, cliCtx.Logger, cliCtx.Metrics)
			res, err := runner.Segment(cmd.Context(), pipeline.SegmentRequest{Patterns: opts.reports, Output: opts.out})
			if err != nil {
				return err
			}
			return PrintResult(cmd, segmentView{res})
		},
	}
	cmd.Flags().StringSliceVar(&opts.reports, "reports", nil, "report files or doublestar globs (required)")
	cmd.Flags().StringVar(&opts.out, "out", "inference.tsv", "base output path")
	_ = cmd.MarkFlagRequired("reports")
	return cmd
}

type segmentView struct {
	*pipeline.SegmentResult
}

func (v segmentView) modes() []string {
	modes := make([]string, 0, len(v.Paths))
	for m := range v.Paths {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}

func (v segmentView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d reports\n", v.Reports)
	for _, m := range v.modes() {
		fmt.Fprintf(&sb, "%s: %d windows -> %s\n", m, v.Windows[m], v.Paths[m])
	}
	return sb.String()
}

func (v segmentView) TableHeaders() []string { return []string{"mode", "windows", "path"} }

func (v segmentView) TableRows() [][]string {
	var rows [][]string
	for _, m := range v.modes() {
		rows = append(rows, []string{m, strconv.Itoa(v.Windows[m]), v.Paths[m]})
	}
	return rows
}

type datasetNormPairsOptions struct {
	annotations string
	out         string
	forged      int
}

func newDatasetNormPairsCmd() *cobra.Command {
	opts := &datasetNormPairsOptions{}
	cmd := &cobra.Command{
		Use:     "norm-pairs",
		Short:   "Build the temporal normalization training set",
		Example: "  deidrecon dataset norm-pairs --annotations answer.txt --out norm.tsv --forged 80",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if opts.forged < 0 {
				return errors.Newf(errors.ErrCodeBadRequest, "--forged must be >= 0, got %d", opts.forged)
			}
			runner := pipeline.NewDatasetRunner(cliCtx.Config.Dataset, cliCtx.Logger, cliCtx.Metrics)
			n, err := runner.NormPairs(cmd.Context(), pipeline.NormPairsRequest{
				Annotations: opts.annotations,
				Output:      opts.out,
				Forged:      opts.forged,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, fmt.Sprintf("%d normalization pairs -> %s", n, opts.out))
		},
	}
	cmd.Flags().StringVar(&opts.annotations, "annotations", "", "answer file with normalized values (required)")
	cmd.Flags().StringVar(&opts.out, "out", "norm_pairs.tsv", "output path")
	cmd.Flags().IntVar(&opts.forged, "forged", 80, "forged samples per generator")
	_ = cmd.MarkFlagRequired("annotations")
	return cmd
}

//Personal.AI order the ending
