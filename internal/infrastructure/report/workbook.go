// Package report exports tabular scoring results to xlsx workbooks.
package report

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// WriteWorkbook writes sheets, in order, to a new workbook at path.  Parent
// directories are created.  Cells are written as strings so offsets and
// normalized values round-trip unchanged.
func WriteWorkbook(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New(errors.ErrCodeReportExport, "workbook needs at least one sheet").WithDetail("path=" + path)
	}
	for _, s := range sheets {
		if s.Name == "" || len([]rune(s.Name)) > maxSheetName {
			return errors.Newf(errors.ErrCodeReportExport, "invalid sheet name %q", s.Name).WithDetail("path=" + path)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return wrapExport(err, path)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return wrapExport(err, path)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return wrapExport(err, path)
		}
		if err := writeSheet(f, s, headerStyle); err != nil {
			return wrapExport(err, path)
		}
	}
	f.SetActiveSheet(0)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return wrapExport(err, path)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return wrapExport(err, path)
	}
	return nil
}

func writeSheet(f *excelize.File, s Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return err
	}
	row := 1
	if len(s.Header) > 0 {
		if err := sw.SetRow("A1", toCells(s.Header), excelize.RowOpts{StyleID: headerStyle}); err != nil {
			return err
		}
		row++
	}
	for _, r := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(r)); err != nil {
			return err
		}
		row++
	}
	return sw.Flush()
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ReadSheet returns every row of the named sheet, header included.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInputOpen, "failed to open workbook").WithDetail("path=" + path)
	}
	defer f.Close()

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInputRead, "failed to read sheet").WithDetail("sheet=" + name)
	}
	return rows, nil
}

func wrapExport(err error, path string) error {
	return errors.Wrap(err, errors.ErrCodeReportExport, "failed to export workbook").WithDetail("path=" + path)
}

//Personal.AI order the ending
