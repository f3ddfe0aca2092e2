package dataset

import (
	"bufio"
	"io"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// WriteWindows writes one document, start, text and label row per window.
func WriteWindows(w io.Writer, windows []phi.Window) error {
	return writeRows(w, len(windows), func(i int) string { return windows[i].Line() })
}

// WriteSegments writes one document, start and text row per window.
func WriteSegments(w io.Writer, windows []phi.Window) error {
	return writeRows(w, len(windows), func(i int) string { return SegmentLine(windows[i]) })
}

// WriteRows writes each row followed by a newline.
func WriteRows(w io.Writer, rows []string) error {
	return writeRows(w, len(rows), func(i int) string { return rows[i] })
}

func writeRows(w io.Writer, n int, row func(int) string) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		if _, err := bw.WriteString(row(i) + "\n"); err != nil {
			return errors.Wrap(err, errors.ErrCodeOutputWrite, "write dataset rows")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWrite, "flush dataset rows")
	}
	return nil
}

//Personal.AI order the ending
