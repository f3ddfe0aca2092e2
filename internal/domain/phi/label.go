package phi

import (
	"regexp"
	"strings"
)

// Label-string tokens.
const (
	// LabelSeparator joins segments of a raw label string.
	LabelSeparator = "++"
	// NormMarker introduces the normalized value of a segment.
	NormMarker = "=>"
	// NullLabel is the sentinel meaning the window holds no PHI.
	NullLabel = "PHI:Null"
)

// labelSegment matches CATEGORY:content with an optional =>normalized suffix.
var labelSegment = regexp.MustCompile(`([A-Z-]+):([^\n=>]+)(=>[^\n]+)?`)

// LabelTriple is one parsed segment of a raw label string.
type LabelTriple struct {
	Category Category
	Content  string
	// Normalized keeps its leading "=>" marker; empty when absent.
	Normalized string
}

// NormValue returns the normalized value without its marker.
func (t LabelTriple) NormValue() string {
	return strings.TrimSpace(strings.TrimPrefix(t.Normalized, NormMarker))
}

// String renders the triple as a label segment.
func (t LabelTriple) String() string {
	return string(t.Category) + ":" + t.Content + t.Normalized
}

// ParseLabelString splits raw on the separator and extracts every segment
// match of every part.  Parts that match nothing contribute nothing; the
// null sentinel parses to a triple with the unknown category "PHI".
func ParseLabelString(raw string) []LabelTriple {
	var out []LabelTriple
	for _, part := range strings.Split(raw, LabelSeparator) {
		for _, m := range labelSegment.FindAllStringSubmatch(part, -1) {
			out = append(out, LabelTriple{
				Category:   Category(m[1]),
				Content:    strings.TrimSpace(m[2]),
				Normalized: strings.TrimSpace(m[3]),
			})
		}
	}
	return out
}

// FormatLabelString joins triples with the separator.  An empty list yields
// the null sentinel.
func FormatLabelString(triples []LabelTriple) string {
	if len(triples) == 0 {
		return NullLabel
	}
	parts := make([]string, len(triples))
	for i, t := range triples {
		parts[i] = t.String()
	}
	return strings.Join(parts, LabelSeparator)
}

// IsNull reports whether raw is the null sentinel.
func IsNull(raw string) bool {
	return strings.TrimSpace(raw) == NullLabel
}

//Personal.AI order the ending
