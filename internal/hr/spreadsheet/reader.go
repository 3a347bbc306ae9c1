// Package spreadsheet turns an uploaded .xlsx workbook into ImportRows.
// It knows nothing about persistence; values stay raw trimmed strings and
// numeric/date cells are parsed later by the importer. Date-formatted
// numeric cells are the exception: their serial is rendered as ISO text here,
// since only the cell style tells a date serial apart from a plain number.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/peoplehub/peoplehub-backend/internal/hr/domain"
	"github.com/xuri/excelize/v2"
)

// ErrMalformedFile is returned when the upload is not a readable workbook
var ErrMalformedFile = errors.New("malformed spreadsheet")

// ImportRow is one data row resolved through the header map
type ImportRow struct {
	// RowIndex is the 1-based sheet row number; the header is row 1.
	RowIndex            int
	Document            string
	FirstName           string
	LastName            string
	Email               string
	Phone               string
	Address             string
	Department          string
	Salary              string
	Position            string
	HireDate            string
	BirthDate           string
	Status              string
	EducationLevel      string
	ProfessionalProfile string
}

// Options controls which worksheet is read
type Options struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string
}

// Sheet is the parsed content of one worksheet
type Sheet struct {
	Name    string
	Headers HeaderMap
	Rows    []ImportRow
	// Skipped counts data rows dropped for a blank document cell
	Skipped int
}

// Read parses the workbook in r. A workbook whose sheet has no rows yields an
// empty Sheet and no error. The workbook is closed before Read returns.
func Read(r io.Reader, opts Options) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	defer f.Close()

	name, err := selectSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return &Sheet{}, nil
	}

	// Raw values keep salaries without display grouping and date cells as
	// serial numbers, which dateCells turns back into dates.
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	return parseRows(name, rows, newDateCells(f, name)), nil
}

func selectSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if want == "" {
		if len(sheets) == 0 {
			return "", nil
		}
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == want {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: sheet %q not found", ErrMalformedFile, want)
}

func parseRows(name string, rows [][]string, dates *dateCells) *Sheet {
	sheet := &Sheet{Name: name}
	if len(rows) == 0 {
		return sheet
	}

	sheet.Headers = NewHeaderMap(rows[0])
	for i, row := range rows[1:] {
		rowIndex := i + 2

		document := sheet.Headers.Value(row, FieldDocument)
		if document == "" {
			sheet.Skipped++
			continue
		}

		sheet.Rows = append(sheet.Rows, ImportRow{
			RowIndex:            rowIndex,
			Document:            document,
			FirstName:           orUnknown(sheet.Headers.Value(row, FieldFirstName)),
			LastName:            orUnknown(sheet.Headers.Value(row, FieldLastName)),
			Email:               sheet.Headers.Value(row, FieldEmail),
			Phone:               sheet.Headers.Value(row, FieldPhone),
			Address:             sheet.Headers.Value(row, FieldAddress),
			Department:          sheet.Headers.Value(row, FieldDepartment),
			Salary:              sheet.Headers.Value(row, FieldSalary),
			Position:            sheet.Headers.Value(row, FieldPosition),
			HireDate:            dates.value(sheet.Headers, row, rowIndex, FieldHireDate),
			BirthDate:           dates.value(sheet.Headers, row, rowIndex, FieldBirthDate),
			Status:              sheet.Headers.Value(row, FieldStatus),
			EducationLevel:      sheet.Headers.Value(row, FieldEducationLevel),
			ProfessionalProfile: sheet.Headers.Value(row, FieldProfessionalProfile),
		})
	}

	return sheet
}

func orUnknown(s string) string {
	if s == "" {
		return domain.NameUnknown
	}
	return s
}
