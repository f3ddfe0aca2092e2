package dataset

import (
	"fmt"
	"strings"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
)

// ---------------------------------------------------------------------------
// Modes
// ---------------------------------------------------------------------------

// Mode selects how units are combined into training samples.
type Mode string

const (
	// ModeOriginal keeps every unit as is.
	ModeOriginal Mode = "original"
	// ModeSliced cuts long units into overlapping windows and drops the rest.
	ModeSliced Mode = "sliced"
	// ModeSpliced appends following units to short units.
	ModeSpliced Mode = "spliced"
)

// AllModes lists the modes in the order datasets are usually built.
var AllModes = []Mode{ModeOriginal, ModeSliced, ModeSpliced}

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOriginal, ModeSliced, ModeSpliced:
		return m, nil
	default:
		return "", fmt.Errorf("unknown dataset mode %q; expected original|sliced|spliced", s)
	}
}

// ---------------------------------------------------------------------------
// Sliding window
// ---------------------------------------------------------------------------

// SlidingWindow cuts unit into windows of at most maxLen runes, each
// starting overlap runes before the previous one ends.  A window's label
// keeps the triples whose content occurs inside it.  Repeated windows are
// dropped.
func SlidingWindow(unit phi.Window, maxLen, overlap int) []phi.Window {
	stride := maxLen - overlap
	if stride < 1 {
		stride = 1
	}
	text := []rune(unit.Text)
	null := unit.Label == phi.NullLabel
	triples := phi.ParseLabelString(unit.Label)

	var out []phi.Window
	for i := 0; i < len(text); i += stride {
		chunk := string(text[i:min(i+maxLen, len(text))])
		label := phi.NullLabel
		if !null {
			var kept []phi.LabelTriple
			for _, t := range triples {
				if strings.Contains(chunk, t.Content) {
					kept = append(kept, t)
				}
			}
			label = phi.FormatLabelString(kept)
		}
		out = append(out, phi.Window{DocumentID: unit.DocumentID, Start: unit.Start + i, Text: chunk, Label: label})
	}
	return dedupeWindows(out)
}

// ---------------------------------------------------------------------------
// Slicer
// ---------------------------------------------------------------------------

// SlicerConfig holds the segmentation lengths in runes.
type SlicerConfig struct {
	// MaxLen bounds spliced samples.  Sliced mode cuts units longer than
	// twice MaxLen into windows of twice MaxLen.
	MaxLen int
	// SliceOverlap is the overlap of sliced windows.
	SliceOverlap int
}

// Slicer combines the units of one document according to a Mode.  When an
// Augmenter is set, every emitted sample is followed by its synthetic
// variants.
type Slicer struct {
	config    SlicerConfig
	augmenter *Augmenter
	logger    logging.Logger
	metrics   *prometheus.PipelineMetrics
}

// NewSlicer creates a Slicer.  augmenter may be nil.
func NewSlicer(config SlicerConfig, augmenter *Augmenter, logger logging.Logger, metrics *prometheus.PipelineMetrics) *Slicer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	return &Slicer{config: config, augmenter: augmenter, logger: logger.Named("slicer"), metrics: metrics}
}

// ConcatenateAndSlice builds the samples of one document's units.
func (s *Slicer) ConcatenateAndSlice(units []phi.Window, mode Mode) []phi.Window {
	var out []phi.Window
	seen := make(map[string]struct{})
	emit := func(w phi.Window) {
		out = append(out, w)
		s.metrics.DatasetSamples.WithLabelValues(string(mode)).Inc()
		out = append(out, s.enhance(w)...)
	}

	for i, u := range units {
		switch mode {
		case ModeOriginal:
			emit(u)
		case ModeSliced:
			if len([]rune(u.Text)) > s.config.MaxLen*2 {
				for _, w := range SlidingWindow(u, s.config.MaxLen*2, s.config.SliceOverlap) {
					emit(w)
				}
			}
		case ModeSpliced:
			if len([]rune(u.Text)) > s.config.MaxLen {
				continue
			}
			w, merged := s.splice(u, units[i+1:])
			if _, dup := seen[w.Line()]; merged && !dup {
				seen[w.Line()] = struct{}{}
				emit(w)
			}
		}
	}
	return out
}

// splice appends following units to u while the result stays shorter than
// MaxLen, padding gaps between them with spaces.  It reports whether any
// unit was appended.
func (s *Slicer) splice(u phi.Window, rest []phi.Window) (phi.Window, bool) {
	var content strings.Builder
	content.WriteString(u.Text)
	n := len([]rune(u.Text))
	labels := []string{u.Label}
	merged := false

	for _, next := range rest {
		pos := u.Start + n
		if next.Start < pos {
			s.logger.Error("offset inversion",
				logging.String(logging.FieldDocID, u.DocumentID),
				logging.Int("expected", pos),
				logging.Int("start", next.Start))
		}
		if gap := next.Start - pos; gap > 0 {
			content.WriteString(strings.Repeat(" ", gap))
			n += gap
		}
		nn := len([]rune(next.Text))
		if n+nn >= s.config.MaxLen {
			break
		}
		content.WriteString(next.Text)
		n += nn
		merged = true
		if next.Label != phi.NullLabel {
			labels = append(labels, next.Label)
		}
	}

	var kept []string
	for _, l := range labels {
		if l != phi.NullLabel {
			kept = append(kept, l)
		}
	}
	label := phi.NullLabel
	if len(kept) > 0 {
		label = strings.Join(kept, phi.LabelSeparator)
	}
	return phi.Window{DocumentID: u.DocumentID, Start: u.Start, Text: content.String(), Label: label}, merged
}

func (s *Slicer) enhance(w phi.Window) []phi.Window {
	if s.augmenter == nil {
		return nil
	}
	extra := s.augmenter.Enhance(w)
	s.metrics.DatasetSamples.WithLabelValues("augment").Add(float64(len(extra)))
	return extra
}

// ---------------------------------------------------------------------------
// Inference segmentation
// ---------------------------------------------------------------------------

// Segments are the inference windows of one report, one set per mode.
// Windows carry no label.
type Segments struct {
	Original []phi.Window
	Spliced  []phi.Window
	Sliced   []phi.Window
}

// ByMode returns the windows of mode.
func (s *Segments) ByMode(mode Mode) []phi.Window {
	switch mode {
	case ModeSpliced:
		return s.Spliced
	case ModeSliced:
		return s.Sliced
	default:
		return s.Original
	}
}

var flatten = strings.NewReplacer("\t", " ", "\n", " ")

func isBlank(s string) bool { return strings.Trim(s, " \n\t") == "" }

// SegmentReport cuts an unlabelled report into inference windows.
// Original windows are its lines.  Spliced windows start at a line no
// longer than maxLen and absorb following lines while the result stays
// shorter than maxLen.  Sliced windows cover lines longer than twice maxLen
// with windows of twice maxLen overlapping by sliceOverlap, positioned by
// searching the report for their text.
func SegmentReport(docID, article string, maxLen, sliceOverlap int) *Segments {
	lines := splitLines(article)
	segs := &Segments{}

	boundary := 0
	for i, line := range lines {
		if !isBlank(line) {
			segs.Original = append(segs.Original, phi.Window{DocumentID: docID, Start: boundary, Text: flatten.Replace(line)})
		}
		if spliced := spliceLines(lines, i, maxLen); !isBlank(spliced) {
			segs.Spliced = append(segs.Spliced, phi.Window{DocumentID: docID, Start: boundary, Text: spliced})
		}
		boundary += len([]rune(line))
	}

	sliceLen := maxLen * 2
	stride := sliceLen - sliceOverlap
	if stride < 1 {
		stride = 1
	}
	for _, line := range lines {
		runes := []rune(line)
		if len(runes) <= sliceLen {
			continue
		}
		for i := 0; i < len(runes); i += stride {
			seg := string(runes[i:min(i+sliceLen, len(runes))])
			if isBlank(seg) {
				continue
			}
			seg = strings.TrimSpace(flatten.Replace(seg))
			seg, pos := locateSuffix(article, seg)
			segs.Sliced = append(segs.Sliced, phi.Window{DocumentID: docID, Start: pos, Text: seg})
		}
	}
	return segs
}

// spliceLines returns line i joined with the following lines while shorter
// than maxLen, or "" when line i is too long or nothing could be joined.
func spliceLines(lines []string, i, maxLen int) string {
	if len([]rune(lines[i])) > maxLen {
		return ""
	}
	current := flatten.Replace(lines[i])
	n := len([]rune(current))
	joined := false
	for _, next := range lines[i+1:] {
		nn := len([]rune(next))
		if n+nn >= maxLen {
			break
		}
		current += flatten.Replace(next)
		n += nn
		joined = true
	}
	if !joined {
		return ""
	}
	return current
}

// locateSuffix finds seg in article, dropping leading runes until some
// suffix is found.  It returns the suffix and its rune offset.
func locateSuffix(article, seg string) (string, int) {
	runes := []rune(seg)
	for i := range runes {
		suffix := string(runes[i:])
		if idx := strings.Index(article, suffix); idx >= 0 {
			return suffix, len([]rune(article[:idx]))
		}
	}
	return "", 0
}

// splitLines splits s after every newline, keeping the newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// SegmentLine renders an inference window as document, start and text.
func SegmentLine(w phi.Window) string {
	return fmt.Sprintf("%s\t%d\t%s", w.DocumentID, w.Start, w.Text)
}

//Personal.AI order the ending
