package testutil

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Workbook builds small .xlsx files for import tests.
//
//	data := testutil.NewWorkbook("documento", "nombre", "apellido").
//	    Row("123", "Ana", "Lopez").
//	    Bytes(t)
type Workbook struct {
	sheet  string
	header []string
	rows   [][]any
}

// NewWorkbook starts a workbook whose first sheet has the given header row.
// With no headers the sheet is left completely empty.
func NewWorkbook(header ...string) *Workbook {
	return &Workbook{sheet: "Sheet1", header: header}
}

// Sheet renames the single worksheet
func (w *Workbook) Sheet(name string) *Workbook {
	w.sheet = name
	return w
}

// Row appends a data row. Values may be strings, numbers or time.Time.
func (w *Workbook) Row(values ...any) *Workbook {
	w.rows = append(w.rows, values)
	return w
}

// Bytes renders the workbook
func (w *Workbook) Bytes(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
			t.Fatalf("failed to rename sheet: %v", err)
		}
	}

	if len(w.header) > 0 {
		header := make([]any, len(w.header))
		for i, h := range w.header {
			header[i] = h
		}
		w.setRow(t, f, 1, header)
	}
	for i, row := range w.rows {
		w.setRow(t, f, i+2, row)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf.Bytes()
}

// Reader renders the workbook as an io.Reader
func (w *Workbook) Reader(t *testing.T) *bytes.Reader {
	t.Helper()
	return bytes.NewReader(w.Bytes(t))
}

func (w *Workbook) setRow(t *testing.T, f *excelize.File, row int, values []any) {
	t.Helper()
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		t.Fatalf("invalid cell: %v", err)
	}
	if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
		t.Fatalf("failed to set row %d: %v", row, err)
	}
}
