// Package dataset turns reports and their answer files into the
// sequence-to-sequence units the extraction model trains on, and cuts
// unlabelled reports into inference windows.  Offsets are rune offsets into
// the report text with a leading byte order mark removed and CRLF folded to
// LF.
package dataset

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/pkg/errors"
	"github.com/turtacn/deid-reconcile/pkg/types/common"
)

// Annotations groups answer rows by document in file order.
type Annotations = common.OrderedMap[string, []phi.Record]

// LoadAnnotations reads an answer file of five- or six-field rows.  Other
// rows are skipped and counted.
func LoadAnnotations(r io.Reader) (*Annotations, int, error) {
	docs := common.NewOrderedMap[string, []phi.Record]()
	skipped := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		rec, ok := phi.ParseRecordLine(line)
		if !ok || len(rec.Fields) > 6 {
			skipped++
			continue
		}
		existing, _ := docs.Get(rec.DocumentID())
		docs.Set(rec.DocumentID(), append(existing, rec))
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, errors.Wrap(err, errors.ErrCodeInputRead, "read answer file")
	}
	return docs, skipped, nil
}

// LoadAnnotationsFile opens path and reads its answer rows.
func LoadAnnotationsFile(path string) (*Annotations, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInputOpen, "open answer file").WithDetail("path=" + path)
	}
	defer f.Close()
	return LoadAnnotations(f)
}

// ReadArticle reads a report.
func ReadArticle(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInputOpen, "read report").WithDetail("path=" + path)
	}
	return cleanArticle(string(data)), nil
}

func cleanArticle(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ---------------------------------------------------------------------------
// Sequence pairs
// ---------------------------------------------------------------------------

// BuildSequencePairs emits one unit per non-blank line of article.  The
// label lists the annotations starting on that line as CAT:text joined by
// the label separator, or the null label when there are none.  A line's
// start is the offset of its first character even though its text is
// trimmed.  Text after the last newline is not emitted.
func BuildSequencePairs(docID, article string, annotations []phi.Record) []phi.Window {
	text := []rune(article)
	anns := append([]phi.Record(nil), annotations...)
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].Start < anns[j].Start })

	var (
		out      []phi.Window
		label    strings.Builder
		boundary int
		next     int
	)
	for idx, ch := range text {
		if ch == '\n' {
			end := idx + 1
			if idx == boundary {
				boundary = end
				continue
			}
			lbl := strings.Trim(label.String(), "+")
			if lbl == "" {
				lbl = phi.NullLabel
			}
			sentence := strings.ReplaceAll(strings.TrimSpace(string(text[boundary:end])), "\t", " ")
			out = append(out, phi.Window{DocumentID: docID, Start: boundary, Text: sentence, Label: lbl})
			boundary = end
			label.Reset()
		}
		for next < len(anns) && anns[next].Start <= idx {
			label.WriteString(string(anns[next].Category()) + ":" + anns[next].Text() + phi.LabelSeparator)
			next++
		}
	}
	return out
}

// BuildNormalizationPairs emits "CAT:text<TAB>norm" rows for every
// annotation carrying a normalized value, in order.
func BuildNormalizationPairs(annotations []phi.Record) []string {
	var out []string
	for _, a := range annotations {
		if norm, ok := a.Normalized(); ok {
			out = append(out, string(a.Category())+":"+a.Text()+"\t"+norm)
		}
	}
	return out
}

// dedupe drops repeated strings keeping the first occurrence.
func dedupe(rows []string) []string {
	seen := make(map[string]struct{}, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// dedupeWindows drops windows whose line repeats an earlier one.
func dedupeWindows(windows []phi.Window) []phi.Window {
	seen := make(map[string]struct{}, len(windows))
	out := windows[:0:0]
	for _, w := range windows {
		line := w.Line()
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, w)
	}
	return out
}

//Personal.AI order the ending
