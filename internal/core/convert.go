package core

// convert.go converts raw spreadsheet cells into typed catalog values and back.
//
// These functions handle the messy reality of user-provided spreadsheet data:
//   - Multiple date formats (US, EU, ISO, Excel serial numbers)
//   - Currency symbols and thousand separators in numbers
//   - Loose boolean spellings
//   - Excel formula artifacts (="value")
//
// Coercion never fails. Malformed input degrades to Null (or a NaN number)
// and is reported later by catalog validation.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// excelEpoch is day zero of the 1900 date system as used by spreadsheet software.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Date layouts split by year format for proper 2-digit year handling
var (
	dateTimeLayouts = []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Unwraps the Excel text-formula form ="..."
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// Coerce converts a raw cell value into the typed value for col.
// Blank input always yields Null; callers must skip writing Null values.
func Coerce(raw CellValue, col Column) CellValue {
	if raw.Kind() == KindString {
		raw = String(CleanCell(raw.str))
	}
	if raw.IsBlank() {
		return Null()
	}

	switch col.Validation.Format {
	case FormatString, FormatEnum, FormatEmail, FormatURI, FormatImage:
		return String(raw.Text())
	case FormatTime:
		return String(raw.Text())
	case FormatNumber, FormatInteger:
		return Number(ToNumber(raw))
	case FormatBoolean:
		return ToBool(raw)
	case FormatArray:
		return ToArray(raw, col.Validation.ArrayElementType)
	case FormatDate, FormatDateTime:
		t, ok := ToDate(raw)
		if !ok {
			return Null()
		}
		if col.Validation.Format == FormatDate {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return Date(t)
	default:
		return raw
	}
}

// ToNumber casts a raw value to a number. Unparseable input yields NaN.
func ToNumber(raw CellValue) float64 {
	switch raw.Kind() {
	case KindNumber:
		return raw.num
	case KindBool:
		if raw.b {
			return 1
		}
		return 0
	case KindString:
		if f, ok := ParseNumber(raw.str); ok {
			return f
		}
	case KindArray:
		if len(raw.arr) == 1 {
			return ToNumber(raw.arr[0])
		}
	}
	return math.NaN()
}

// ParseNumber parses user-typed numeric text.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToBool treats "no", "false" and "0" (any case) as false and every other
// non-empty value as true.
func ToBool(raw CellValue) CellValue {
	switch raw.Kind() {
	case KindBool:
		return raw
	case KindNumber:
		return Bool(raw.num != 0 && !math.IsNaN(raw.num))
	case KindString:
		switch strings.ToLower(strings.TrimSpace(raw.str)) {
		case "no", "false", "0":
			return Bool(false)
		}
		return Bool(true)
	case KindArray:
		return Bool(len(raw.arr) > 0)
	}
	return Bool(true)
}

// ToArray splits comma-separated text into elements. Numeric element types
// drop elements that do not parse; non-string input is wrapped as a single
// element.
func ToArray(raw CellValue, elem Format) CellValue {
	if raw.Kind() == KindArray {
		return raw
	}
	if raw.Kind() != KindString {
		return Array(raw)
	}

	parts := strings.Split(raw.str, ",")
	out := make([]CellValue, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if elem == FormatString || elem == FormatUnspecified {
			out = append(out, String(p))
			continue
		}
		if f, ok := ParseNumber(p); ok {
			out = append(out, Number(f))
		}
	}
	return Array(out...)
}

// ToDate parses a string or accepts a native date. Numbers are read as
// spreadsheet serial dates.
func ToDate(raw CellValue) (time.Time, bool) {
	switch raw.Kind() {
	case KindDate:
		return raw.t, true
	case KindNumber:
		if math.IsNaN(raw.num) || raw.num <= 0 {
			return time.Time{}, false
		}
		return FromSerial(raw.num), true
	case KindString:
		return ParseDate(raw.str)
	}
	return time.Time{}, false
}

// ParseDate parses a date or date-time string.
// Supports multiple date formats and handles 2-digit years with pivot.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// FromSerial converts a spreadsheet serial date to a UTC time.
func FromSerial(serial float64) time.Time {
	days := math.Floor(serial)
	frac := serial - days
	t := excelEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac*86400)) * time.Second)
}

// ToSerial converts a time to a spreadsheet serial date.
func ToSerial(t time.Time) float64 {
	t = t.UTC()
	d := t.Sub(excelEpoch)
	return d.Hours() / 24
}
