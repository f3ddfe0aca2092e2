package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/deid-reconcile/internal/testutil"
	apperrors "github.com/turtacn/deid-reconcile/pkg/errors"
)

// writeTestConfig writes a quiet configuration whose report directory is dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	return testutil.WriteFile(t, dir, "deidrecon.yaml", fmt.Sprintf(`log:
  level: error
  format: console
pipeline:
  concurrency: 2
evaluation:
  report_dir: %s
dataset:
  max_len: 25
  overlap: 4
  slice_overlap: 4
  test_ratio: 0.01
`, filepath.Join(dir, "reports")))
}

// executeCommand runs the root command with args against a test config and
// returns what it printed on stdout.
func executeCommand(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", writeTestConfig(t, dir)}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "deidrecon", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"annotate", "evaluate", "evaluate-norm", "normalize", "dataset", "migrate", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	pf := NewRootCommand().PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"config", "c", ""},
		{"log-level", "", ""},
		{"output", "o", "text"},
		{"verbose", "v", "false"},
		{"metrics-file", "", ""},
		{"watch-config", "", "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pf.Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "1.2.3"

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "deidrecon 1.2.3")
	assert.Contains(t, out.String(), "commit: ")
}

func TestExecute_UnknownSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"unknownsubcommand"})
	assert.Error(t, cmd.Execute())
}

func TestPersistentPreRun_InvalidOutputFormat(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", "")
	_, err := executeCommand(t, dir, "evaluate", "--pred", pred, "--truth", pred, "-o", "yaml")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestPersistentPreRun_MissingConfig(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", "")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "evaluate", "--pred", pred, "--truth", pred})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfigRead))
	assert.Equal(t, 5, apperrors.ExitCodeForError(err))
}

func TestPersistentPreRun_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "bad.yaml", "pipeline:\n  concurrency: -1\n")
	pred := testutil.WriteFile(t, dir, "pred.txt", "")

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "evaluate", "--pred", pred, "--truth", pred})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfigInvalid))
}

func TestMetricsFile_WrittenOnExit(t *testing.T) {
	dir := t.TempDir()
	pred := testutil.WriteFile(t, dir, "pred.txt", testutil.Lines("d1\tDOCTOR\t3\t8\tSmith"))
	metrics := filepath.Join(dir, "metrics.prom")

	_, err := executeCommand(t, dir, "--metrics-file", metrics, "evaluate", "--pred", pred, "--truth", pred)
	require.NoError(t, err)
	lines := testutil.ReadLines(t, metrics)
	assert.NotEmpty(t, lines)
	assert.Contains(t, strings.Join(lines, "\n"), "deidrecon_")
}

func TestGetCLIContext_Missing(t *testing.T) {
	_, err := GetCLIContext(&cobra.Command{})
	assert.Error(t, err)
}

func TestPrintResult_FallsBackToJSON(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, PrintResult(cmd, map[string]int{"tp": 3}))
	assert.JSONEq(t, `{"tp":3}`, out.String())
}

func TestFormatTable(t *testing.T) {
	got := FormatTable([]string{"metric", "value"}, [][]string{{"tp", "12"}, {"precision"}})
	assert.Equal(t, "metric     value\n"+
		"---------  -----\n"+
		"tp         12   \n"+
		"precision       \n", got)
	assert.Empty(t, FormatTable(nil, nil))
}

//Personal.AI order the ending
