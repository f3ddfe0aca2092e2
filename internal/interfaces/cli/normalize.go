package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/turtacn/deid-reconcile/internal/application/normalize"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

type normalizeOptions struct {
	in  string
	out string
}

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd() *cobra.Command {
	opts := &normalizeOptions{}
	cmd := &cobra.Command{
		Use:     "normalize",
		Short:   "Correct the normalized values of DATE and TIME annotations",
		Example: "  deidrecon normalize --in answer_norm.txt --out answer_norm_clean.txt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runNormalize(cmd, cliCtx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.in, "in", "", "annotation file with normalized values (required)")
	cmd.Flags().StringVar(&opts.out, "out", "", "rewritten annotation file (required)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// normalizeResult summarizes a normalize run.
type normalizeResult struct {
	Input   string `json:"input"`
	Output  string `json:"output"`
	Rows    int    `json:"rows"`
	Changed int    `json:"changed"`
}

func (r normalizeResult) String() string {
	return fmt.Sprintf("%d rows written to %s, %d normalized values corrected\n", r.Rows, r.Output, r.Changed)
}

func runNormalize(cmd *cobra.Command, cliCtx *CLIContext, opts *normalizeOptions) error {
	if filepath.Clean(opts.in) == filepath.Clean(opts.out) {
		return errors.New(errors.ErrCodeBadRequest, "input and output must differ").WithDetail("path=" + opts.in)
	}
	in, err := os.Open(opts.in)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInputOpen, "failed to open annotation file").WithDetail("path=" + opts.in)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create output directory").WithDetail("path=" + opts.out)
	}
	out, err := os.Create(opts.out)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create output file").WithDetail("path=" + opts.out)
	}

	stats, err := normalize.NormalizeFile(normalize.NewRuleNormalizer(cliCtx.Logger), in, out)
	if cerr := out.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.ErrCodeOutputWrite, "failed to close output file").WithDetail("path=" + opts.out)
	}
	if err != nil {
		return err
	}
	cliCtx.Logger.Info("normalized annotation file",
		logging.String(logging.FieldFile, opts.out),
		logging.Int("rows", stats.Rows),
		logging.Int("changed", stats.Changed),
	)
	return PrintResult(cmd, normalizeResult{Input: opts.in, Output: opts.out, Rows: stats.Rows, Changed: stats.Changed})
}

//Personal.AI order the ending
