package spreadsheet

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order. Slash dates are day-first; the dashed
// two-digit-year form is Excel's default rendering of date cells, which
// shows up when a date was pasted as text.
var dateLayouts = []string{
	"2006-01-02",
	"2/1/2006",
	"2006/1/2",
	"01-02-06",
	"2-1-2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
}

// ParseDate parses a cell as a calendar date. ok is false for blank or
// unrecognised text, bare numbers included; callers leave the target field
// untouched in that case. Date-formatted serials are converted by Read.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateToDay(t), true
		}
	}

	return time.Time{}, false
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// salaryScale and maxSalary mirror the salary column, NUMERIC(14,2).
const salaryScale = 2

var (
	maxSalary    = decimal.New(1, 12)
	exponentForm = regexp.MustCompile(`\d[eE][+-]?\d`)
)

// ParseDecimal parses a salary cell. Plain numbers are tried first; then
// currency symbols and grouping separators are stripped. When both '.' and
// ',' appear, the rightmost one is the decimal separator. The result is
// rounded to cents; exponent notation and amounts the salary column cannot
// hold are rejected.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || exponentForm.MatchString(s) {
		return decimal.Zero, false
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return fitSalary(d)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, s)
	if cleaned == "" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 && len(cleaned)-lastComma-1 <= 2 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return fitSalary(d)
}

func fitSalary(d decimal.Decimal) (decimal.Decimal, bool) {
	d = d.Round(salaryScale)
	if d.Abs().GreaterThanOrEqual(maxSalary) {
		return decimal.Zero, false
	}
	return d, true
}
