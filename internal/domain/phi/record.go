package phi

import (
	"strconv"
	"strings"
)

// SpanKey identifies a span within a document.
type SpanKey struct {
	DocumentID string
	Start      int
	End        int
}

// StartKey identifies a start position within a document.
type StartKey struct {
	DocumentID string
	Start      int
}

// Record is one row of an annotation file: document, category, start, end,
// text and optionally a normalized value.  Fields keeps every column as
// read so reports can echo the row unchanged.
type Record struct {
	Fields []string
	Start  int
	End    int
}

// ParseRecordLine trims line, splits it on tabs and requires at least five
// fields with integer offsets.
func ParseRecordLine(line string) (Record, bool) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) < 5 {
		return Record{}, false
	}
	start, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, false
	}
	end, err := strconv.Atoi(fields[3])
	if err != nil {
		return Record{}, false
	}
	return Record{Fields: fields, Start: start, End: end}, true
}

// DocumentID returns the first column.
func (r Record) DocumentID() string { return r.Fields[0] }

// Category returns the second column.
func (r Record) Category() Category { return Category(r.Fields[1]) }

// Text returns the fifth column.
func (r Record) Text() string { return r.Fields[4] }

// Normalized returns the sixth column and whether it exists.
func (r Record) Normalized() (string, bool) {
	if len(r.Fields) > 5 {
		return r.Fields[5], true
	}
	return "", false
}

// Key returns the (document, start, end) key.
func (r Record) Key() SpanKey {
	return SpanKey{DocumentID: r.Fields[0], Start: r.Start, End: r.End}
}

// StartKey returns the (document, start) key.
func (r Record) StartKey() StartKey {
	return StartKey{DocumentID: r.Fields[0], Start: r.Start}
}

// Line renders the record's fields joined by tabs.
func (r Record) Line() string {
	return strings.Join(r.Fields, "\t")
}

//Personal.AI order the ending
