package scoring

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// maxLineSize bounds a single annotation line.
const maxLineSize = 1 << 20

// LoadRecords reads annotation rows from r.  Rows with fewer than five
// fields or non-integer offsets are skipped and counted.
func LoadRecords(r io.Reader) ([]phi.Record, int, error) {
	var (
		records []phi.Record
		skipped int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		rec, ok := phi.ParseRecordLine(line)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, errors.Wrap(err, errors.ErrCodeInputRead, "read annotation rows")
	}
	return records, skipped, nil
}

// LoadRecordsFile opens path and reads its annotation rows.
func LoadRecordsFile(path string) ([]phi.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInputOpen, "open annotation file").WithDetail("path=" + path)
	}
	defer f.Close()

	records, skipped, err := LoadRecords(f)
	if err != nil {
		return nil, skipped, errors.Wrap(err, errors.ErrCodeUnknown, "load annotation file").WithDetail("path=" + path)
	}
	return records, skipped, nil
}

//Personal.AI order the ending
