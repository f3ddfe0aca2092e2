package pipeline

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// maxLineSize bounds one prediction line.
const maxLineSize = 1 << 20

// ExpandInputs resolves each pattern with doublestar semantics and returns the
// matching files in pattern order, sorted within a pattern, without
// duplicates.  A pattern without glob meta characters must name an existing
// file.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		p = filepath.Clean(p)
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, errors.New(errors.ErrCodeInputGlob, "invalid input pattern").WithDetail("pattern=" + p)
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInputGlob, "invalid input pattern").WithDetail("pattern=" + p)
		}
		if len(matches) == 0 && !hasMeta(p) {
			return nil, errors.New(errors.ErrCodeInputOpen, "input file not found").WithDetail("path=" + p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeInputOpen, "no input files matched").
			WithDetail("patterns=" + strings.Join(patterns, ","))
	}
	return out, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// readWindows parses one prediction file.  Lines that are not four tab
// separated fields are logged and counted as skipped.
func readWindows(path string, logger logging.Logger) ([]phi.Window, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInputOpen, "failed to open prediction file").WithDetail("path=" + path)
	}
	defer f.Close()

	var windows []phi.Window
	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		w, ok := phi.ParseWindowLine(line)
		if !ok {
			skipped++
			logger.Warn("skipping malformed prediction line",
				logging.String(logging.FieldFile, path), logging.Int("line", lineNo))
			continue
		}
		windows = append(windows, w)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, errors.Wrap(err, errors.ErrCodeInputRead, "failed to read prediction file").WithDetail("path=" + path)
	}
	return windows, skipped, nil
}

// writeLines writes each line followed by a newline to path.
func writeLines(path string, lines []string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create output directory").WithDetail("path=" + path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to create output file").WithDetail("path=" + path)
	}
	bw := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			f.Close()
			return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to write output file").WithDetail("path=" + path)
		}
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to flush output file").WithDetail("path=" + path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "failed to close output file").WithDetail("path=" + path)
	}
	return nil
}

//Personal.AI order the ending
