// Package normalize corrects the normalized values of DATE and TIME
// annotations using the original text the model saw.  Model output tends to
// swap day and month or drop the century; the original text is the
// authority for both.
package normalize

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// ---------------------------------------------------------------------------
// Normalizer
// ---------------------------------------------------------------------------

// Normalizer post-processes a normalized value.  It is a pure function of
// its inputs.
type Normalizer interface {
	Normalize(original, normalized string, category phi.Category) string
}

var (
	// D/M/Y with . or / separators, or a packed YYYYMMDD.
	originalDate = regexp.MustCompile(`^(?:(\d{1,2})[./](\d{1,2})[./](\d{2,4})|(\d{8}))`)
	isoDate      = regexp.MustCompile(`(\d{2,4})-(\d{2})-(\d{2})`)
	isoDateTime  = regexp.MustCompile(`\b(\d{2,4}-\d{2}-\d{2})T`)
	clockTime    = regexp.MustCompile(`(?i)(\d{1,2})[:.](\d{2})\s*(am|pm)`)
	isoClock     = regexp.MustCompile(`T\d{2}:\d{2}`)
)

// Option configures a RuleNormalizer.
type Option func(*RuleNormalizer)

// WithClock sets the clock used to complete two-digit years.
func WithClock(now func() time.Time) Option {
	return func(n *RuleNormalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// RuleNormalizer applies the regex heuristics for DATE and TIME.  Other
// categories are returned unchanged.
type RuleNormalizer struct {
	now    func() time.Time
	logger logging.Logger
}

// NewRuleNormalizer creates a RuleNormalizer.
func NewRuleNormalizer(logger logging.Logger, opts ...Option) *RuleNormalizer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	n := &RuleNormalizer{now: time.Now, logger: logger.Named("normalize")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize implements Normalizer.
func (n *RuleNormalizer) Normalize(original, normalized string, category phi.Category) string {
	out := n.normalize(original, normalized, category)
	if out != normalized {
		n.logger.Debug("normalized value corrected",
			logging.String(logging.FieldCategory, string(category)),
			logging.String("from", normalized), logging.String("to", out))
	}
	return out
}

func (n *RuleNormalizer) normalize(original, normalized string, category phi.Category) string {
	switch category {
	case phi.Date:
		return n.correctDate(originalDate.FindStringSubmatch(strings.ReplaceAll(original, " ", "")), normalized)
	case phi.Time:
		if m := isoDateTime.FindStringSubmatch(normalized); m != nil {
			datePart := m[1]
			corrected := n.correctDate(firstTokenDate(original), datePart)
			normalized = strings.ReplaceAll(normalized, datePart, corrected)
		}
		return to24Hour(original, normalized)
	default:
		return normalized
	}
}

// firstTokenDate returns the date match of the first space-separated token
// of original that starts with a date.
func firstTokenDate(original string) []string {
	for _, tok := range strings.Split(original, " ") {
		if m := originalDate.FindStringSubmatch(tok); m != nil {
			return m
		}
	}
	return nil
}

// correctDate rewrites the first ISO date in normalized to the day, month
// and year found in the original text.
func (n *RuleNormalizer) correctDate(m []string, normalized string) string {
	if m == nil {
		return normalized
	}
	var day, month, year string
	if m[4] != "" {
		year, month, day = m[4][:4], m[4][4:6], m[4][6:]
	} else {
		day, month, year = m[1], m[2], m[3]
	}
	day = zeroPad(day)
	month = zeroPad(month)
	switch len(year) {
	case 2:
		year = strconv.Itoa(n.now().Year())[:2] + year
	case 3:
		return normalized
	}

	got := isoDate.FindStringSubmatch(normalized)
	if got == nil {
		return normalized
	}
	if got[1] == year && got[2] == month && got[3] == day {
		return normalized
	}
	old := got[1] + "-" + got[2] + "-" + got[3]
	return strings.ReplaceAll(normalized, old, year+"-"+month+"-"+day)
}

func zeroPad(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// to24Hour substitutes the first am/pm clock time of original, converted to
// 24h, for every Thh:mm in normalized.
func to24Hour(original, normalized string) string {
	m := clockTime.FindStringSubmatch(original)
	if m == nil {
		return normalized
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	switch strings.ToLower(m[3]) {
	case "pm":
		if hours < 12 {
			hours += 12
		}
	case "am":
		if hours == 12 {
			hours = 0
		}
	}
	return isoClock.ReplaceAllLiteralString(normalized, fmt.Sprintf("T%02d:%02d", hours, minutes))
}

// ---------------------------------------------------------------------------
// File rewriting
// ---------------------------------------------------------------------------

// FileStats summarises a NormalizeFile run.
type FileStats struct {
	Rows    int
	Changed int
}

// NormalizeFile copies annotation rows from r to w, passing the text and
// normalized value of every six-field row through n.  Other rows are
// copied trimmed; blank lines are dropped.
func NormalizeFile(n Normalizer, r io.Reader, w io.Writer) (FileStats, error) {
	var stats FileStats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	bw := bufio.NewWriter(w)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) == 6 {
			norm := n.Normalize(parts[4], parts[5], phi.Category(parts[1]))
			if norm != parts[5] {
				stats.Changed++
				parts[5] = norm
			}
			line = strings.Join(parts, "\t")
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return stats, errors.Wrap(err, errors.ErrCodeOutputWrite, "write normalized row")
		}
		stats.Rows++
	}
	if err := sc.Err(); err != nil {
		return stats, errors.Wrap(err, errors.ErrCodeInputRead, "read annotation rows")
	}
	if err := bw.Flush(); err != nil {
		return stats, errors.Wrap(err, errors.ErrCodeOutputWrite, "flush normalized rows")
	}
	return stats, nil
}

//Personal.AI order the ending
