package phi_extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
)

var (
	hospitalKeys     = []string{"HOSPITAL", "SERVICE", "CAMPUS", "CENTRE"}
	healthKeys       = []string{"HEALTH"}
	organizationKeys = []string{"Inc", "Corporation"}

	// timeOnDate captures "9:30am on 5/6/2019"; timeNearDate also accepts
	// "9.30pm at 5/6/19" and a bare "9:30am 5/6/19".
	timeOnDate   = regexp.MustCompile(`\b(\d{1,2}:\d{2}[ap]m\s+on\s+\d{1,2}[./]\d{1,2}[./]\d{2,4})\b`)
	timeNearDate = regexp.MustCompile(`(\d{1,2}[.:]\d{2}[ap]m\s+(?:on\s+|at\s+)?\d{1,2}[./]\d{1,2}[./]\d{2,4})`)
	fullDate     = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)
)

// contentCompleter extends a possibly truncated content using its sentence.
type contentCompleter func(sentence, partial string) string

// completers maps a category to its completion rule.  TIME runs both time
// rules in sequence.
var completers = map[phi.Category]contentCompleter{
	phi.Hospital:     completeHospital,
	phi.Time:         func(s, p string) string { return completeTimeOnDate(s, completeTimeAroundDate(s, p)) },
	phi.Patient:      completePatient,
	phi.Organization: completeOrganization,
}

// ReviseContent applies the category's completion rule to a validated
// triple.  The normalized value is always dropped.
func ReviseContent(sentence string, t phi.LabelTriple) phi.LabelTriple {
	content := t.Content
	if complete, ok := completers[t.Category]; ok {
		content = complete(sentence, content)
	}
	return phi.LabelTriple{Category: t.Category, Content: content}
}

// Word characters are letters, digits and underscore of any script.  RE2's
// \b only knows ASCII, so boundaries are spelled out with these classes.
const (
	wordClass    = `[\p{L}\p{N}_]`
	nonWordClass = `[^\p{L}\p{N}_]`
)

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// findAnchored returns the first match in sentence of partial, starting on a
// word boundary, followed by the shortest run up to a whole-word key.
func findAnchored(sentence, partial string, keys []string) (string, bool) {
	first, _ := utf8.DecodeRuneInString(partial)
	last, _ := utf8.DecodeLastRuneInString(partial)

	lead := `(?:^|` + nonWordClass + `)`
	if partial != "" && !isWordRune(first) {
		lead = wordClass
	}
	gap := `(?:.*?` + nonWordClass + `)`
	if partial == "" || !isWordRune(last) {
		gap += `?`
	}
	re, err := regexp.Compile(lead + `(` + regexp.QuoteMeta(partial) + gap +
		`(?:` + strings.Join(keys, "|") + `))(?:$|` + nonWordClass + `)`)
	if err != nil {
		return "", false
	}
	loc := re.FindStringSubmatchIndex(sentence)
	if loc == nil {
		return "", false
	}
	return sentence[loc[2]:loc[3]], true
}

// completeHospital extends partial up to the nearest institution keyword when
// the sentence holds a keyword the partial lacks.  The fallbacks are the
// HEALTH keyword, then the partial's first word alone; when every attempt
// fails the first word is returned.
func completeHospital(sentence, partial string) string {
	for _, key := range hospitalKeys {
		if !strings.Contains(sentence, key) || strings.Contains(partial, key) {
			continue
		}
		if m, ok := findAnchored(sentence, partial, hospitalKeys); ok {
			return m
		}
		if m, ok := findAnchored(sentence, partial, healthKeys); ok {
			return m
		}
		partial = strings.Split(partial, " ")[0]
		if m, ok := findAnchored(sentence, partial, hospitalKeys); ok {
			return m
		}
		return partial
	}
	return partial
}

// completeOrganization mirrors completeHospital with company suffixes and a
// single first-word fallback.  A failed fallback returns partial unchanged.
func completeOrganization(sentence, partial string) string {
	for _, key := range organizationKeys {
		if !strings.Contains(sentence, key) || strings.Contains(partial, key) {
			continue
		}
		if m, ok := findAnchored(sentence, partial, organizationKeys); ok {
			return m
		}
		if m, ok := findAnchored(sentence, strings.Split(partial, " ")[0], organizationKeys); ok {
			return m
		}
		return partial
	}
	return partial
}

// completeTimeAroundDate replaces partial with the first time-then-date
// expression of the sentence, when one exists.
func completeTimeAroundDate(sentence, partial string) string {
	for _, re := range []*regexp.Regexp{timeOnDate, timeNearDate} {
		if m := re.FindStringSubmatch(sentence); m != nil {
			return m[1]
		}
	}
	return partial
}

// completeTimeOnDate extends a partial holding dd/mm/yyyy with the "at|on
// h:mm" that follows that date in the sentence.
func completeTimeOnDate(sentence, partial string) string {
	dm := fullDate.FindStringSubmatch(partial)
	if dm == nil {
		return partial
	}
	date := dm[1]
	re := regexp.MustCompile(regexp.QuoteMeta(date) + `\s+(at|on)\s+(\d{1,2}:\d{1,2})`)
	if m := re.FindStringSubmatch(sentence); m != nil {
		return date + " " + m[1] + " " + m[2]
	}
	return partial
}

// completePatient extends partial with the word characters that follow its
// first occurrence, repairing names cut mid-word.
func completePatient(sentence, partial string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(partial) + `\w*`)
	if m := re.FindString(sentence); m != "" {
		return m
	}
	return partial
}

//Personal.AI order the ending
