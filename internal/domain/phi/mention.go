package phi

import (
	"strconv"
	"strings"
)

// Mention is one located PHI occurrence.  Start and End are half-open
// character offsets relative to the document, not byte offsets.
type Mention struct {
	DocumentID string   `json:"document_id"`
	Category   Category `json:"category"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Text       string   `json:"text"`
	Normalized string   `json:"normalized,omitempty"`
}

// Record renders the mention as document, category, start, end and text
// joined by tabs.
func (m Mention) Record() string {
	var sb strings.Builder
	sb.WriteString(m.DocumentID)
	sb.WriteByte('\t')
	sb.WriteString(string(m.Category))
	sb.WriteByte('\t')
	sb.WriteString(strconv.Itoa(m.Start))
	sb.WriteByte('\t')
	sb.WriteString(strconv.Itoa(m.End))
	sb.WriteByte('\t')
	sb.WriteString(m.Text)
	return sb.String()
}

// Valid reports whether the offsets form a non-empty span.
func (m Mention) Valid() bool {
	return m.Start >= 0 && m.Start < m.End
}

//Personal.AI order the ending
