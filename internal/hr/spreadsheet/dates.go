package spreadsheet

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Built-in number format ids that render a date. 27-36 and 50-58 are the
// CJK locale variants, 71-81 the Thai ones.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
	71: true, 72: true, 73: true, 74: true, 75: true, 76: true, 77: true, 78: true, 79: true, 80: true, 81: true,
}

// Serial day numbers outside this range are not treated as dates.
// 2958465 is 9999-12-31, the last day Excel can represent.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// dateCells renders date-formatted numeric cells as ISO dates. A number in
// a cell without a date format is left as typed, so ParseDate rejects it.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

// newDateCells returns nil when f is nil; a nil *dateCells passes values through.
func newDateCells(f *excelize.File, sheet string) *dateCells {
	if f == nil {
		return nil
	}
	d := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil && *props.Date1904 {
		d.date1904 = true
	}
	return d
}

// value returns the trimmed text of field f in row, converting a date serial
// to "2006-01-02" when the underlying cell is date-formatted.
func (d *dateCells) value(h HeaderMap, row []string, rowIndex int, f Field) string {
	raw := h.Value(row, f)
	if d == nil || raw == "" {
		return raw
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial < minExcelSerial || serial > maxExcelSerial {
		return raw
	}

	cell, err := excelize.CoordinatesToCellName(h[f]+1, rowIndex)
	if err != nil || !d.isDateCell(cell) {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}

func (d *dateCells) isDateCell(cell string) bool {
	typ, err := d.f.GetCellType(d.sheet, cell)
	if err != nil || (typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber) {
		return false
	}

	idx, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil || idx == 0 {
		return false
	}
	if isDate, ok := d.styles[idx]; ok {
		return isDate
	}

	isDate := false
	if style, err := d.f.GetStyle(idx); err == nil {
		isDate = builtinDateFormats[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	d.styles[idx] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom number format shows a day or a
// year. Quoted literals, escaped characters and [..] sections (colours,
// locales, elapsed time) are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	plain := strings.ToLower(b.String())
	return strings.ContainsAny(plain, "dy")
}
