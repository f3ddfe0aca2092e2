package phi_extractor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
)

// commonCountries are multi-word country names the model tends to miss.
var commonCountries = []string{
	"United States", "United Kingdom", "South Korea", "Saudi Arabia",
	"South Africa", "United Arab Emirates", "New Zealand",
}

// maxDetectedDuration bounds the leading number of a detected DURATION.
const maxDetectedDuration = 20

// pageMarker is report boilerplate that holds a stray digit.
const pageMarker = "Page: 2"

var (
	durationRe    = regexp.MustCompile(`(?i)(\b\d{1,2}-\d{1,2}\s*|\b\d+\s*)(day|week|month|year|dy|wk|mth|yr)s?\b`)
	leadingNumber = regexp.MustCompile(`\b\d+\b`)
	poBoxRe       = regexp.MustCompile(`(?i)(P\.O\.\s+BOX \d+|PO\s+BOX \d+)`)
	countryRe     = func() *regexp.Regexp {
		quoted := make([]string, len(commonCountries))
		for i, c := range commonCountries {
			quoted[i] = regexp.QuoteMeta(c)
		}
		return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}()
)

// Detection is one label segment added from the window text.
type Detection struct {
	Category phi.Category
	Content  string
}

// Detect scans sentence for DURATION, LOCATION-OTHER and COUNTRY values the
// label string may lack, appends each as a new segment, then drops an AGE
// segment whose value only occurs inside the window's DATE values.  It
// returns the rewritten label string and the segments added.
func Detect(sentence, label string) (string, []Detection) {
	var added []Detection

	if d, ok := detectDuration(sentence); ok {
		if strings.Contains(sentence, d+"s") {
			d += "s"
		}
		label += phi.LabelSeparator + string(phi.Duration) + ":" + d
		added = append(added, Detection{phi.Duration, d})
	}
	if loc := poBoxRe.FindString(sentence); loc != "" {
		label += phi.LabelSeparator + string(phi.LocationOther) + ":" + loc
		added = append(added, Detection{phi.LocationOther, loc})
	}
	if c := countryRe.FindString(sentence); c != "" {
		label += phi.LabelSeparator + string(phi.Country) + ":" + c
		added = append(added, Detection{phi.Country, c})
	}
	return dropAgeInDate(sentence, label), added
}

// durationCandidate is one "<number> <unit>" occurrence.
type durationCandidate struct {
	number string // leading number with any trailing space
	unit   string
}

// detectDuration returns the first duration phrase of sentence when its
// leading number is at most maxDetectedDuration.  Phrases followed by "old"
// and phrases restated elsewhere as "<n> <unit> old" are ages, not durations.
func detectDuration(sentence string) (string, bool) {
	var durations []string
	for _, c := range findDurations(sentence) {
		age := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c.number) + `\s*` + regexp.QuoteMeta(c.unit) + `\s*old\b`)
		if !age.MatchString(sentence) {
			durations = append(durations, strings.TrimSpace(c.number+c.unit))
		}
	}
	if len(durations) == 0 {
		return "", false
	}
	num := leadingNumber.FindString(durations[0])
	if num == "" {
		return "", false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n > maxDetectedDuration {
		return "", false
	}
	return durations[0], true
}

// findDurations returns the non-overlapping duration matches of sentence in
// order.  A match immediately followed by optional space and "old" is
// discarded and scanning resumes one byte after its start.  Because each scan
// runs on a suffix, the leading word boundary is re-checked against the byte
// before the suffix.
func findDurations(sentence string) []durationCandidate {
	var out []durationCandidate
	pos := 0
	for pos < len(sentence) {
		loc := durationRe.FindStringSubmatchIndex(sentence[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if start > 0 && isWordByte(sentence[start-1]) || followedByOld(sentence[end:]) {
			pos = start + 1
			continue
		}
		out = append(out, durationCandidate{
			number: sentence[pos+loc[2] : pos+loc[3]],
			unit:   sentence[pos+loc[4] : pos+loc[5]],
		})
		pos = end
	}
	return out
}

func followedByOld(rest string) bool {
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if len(rest) < 3 {
		return false
	}
	return strings.EqualFold(rest[:3], "old")
}

func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

// dropAgeInDate removes the last AGE segment when the window holds both DATE
// and AGE segments and the age value does not survive removal of every DATE
// value (and the page marker) from the sentence.
func dropAgeInDate(sentence, label string) string {
	sentence = strings.ReplaceAll(sentence, pageMarker, "")
	if !strings.Contains(label, string(phi.Date)+":") || !strings.Contains(label, string(phi.Age)+":") {
		return label
	}

	age := ""
	for _, t := range phi.ParseLabelString(label) {
		switch t.Category {
		case phi.Date:
			sentence = strings.ReplaceAll(sentence, t.Content, "")
		case phi.Age:
			age = t.Content
		}
	}
	if age == "" || strings.Contains(sentence, age) {
		return label
	}
	if strings.Contains(label, phi.LabelSeparator+string(phi.Age)+":") {
		return strings.ReplaceAll(label, phi.LabelSeparator+string(phi.Age)+":"+age, "")
	}
	return strings.ReplaceAll(label, string(phi.Age)+":"+age, "")
}

//Personal.AI order the ending
