package phi

import (
	"strconv"
	"strings"
)

// Window is one inference unit: a slice of document text, its absolute start
// offset and the raw label string produced for it.
type Window struct {
	DocumentID string
	Start      int
	Text       string
	Label      string
}

// ParseWindowLine parses a prediction line of exactly four tab-separated
// fields after trimming surrounding whitespace.  It reports false for any
// other shape or a non-integer offset.
func ParseWindowLine(line string) (Window, bool) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) != 4 {
		return Window{}, false
	}
	start, err := strconv.Atoi(fields[1])
	if err != nil {
		return Window{}, false
	}
	return Window{
		DocumentID: fields[0],
		Start:      start,
		Text:       fields[2],
		Label:      fields[3],
	}, true
}

// Line renders the window as a prediction line.
func (w Window) Line() string {
	return w.DocumentID + "\t" + strconv.Itoa(w.Start) + "\t" + w.Text + "\t" + w.Label
}

//Personal.AI order the ending
