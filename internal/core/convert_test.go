package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func col(format Format) Column {
	return Column{FieldPath: "f", DisplayName: "f", Validation: Validation{Format: format}}
}

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"123", 123, true},
		{"-456", -456, true},
		{"0.5", 0.5, true},
		{".5", 0.5, true},
		{"1e3", 1000, true},
		{"$1,234.56", 1234.56, true},
		{"€99", 99, true},
		{"£7.25", 7.25, true},
		{"(42.10)", -42.10, true},
		{"  12  ", 12, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"1.2.3", 0, false},
		{"--1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestToNumber(t *testing.T) {
	assert.Equal(t, 3.5, ToNumber(Number(3.5)))
	assert.Equal(t, 1.0, ToNumber(Bool(true)))
	assert.Equal(t, 0.0, ToNumber(Bool(false)))
	assert.Equal(t, 12.0, ToNumber(String("12")))
	assert.Equal(t, 7.0, ToNumber(Array(String("7"))))
	assert.True(t, math.IsNaN(ToNumber(String("twelve"))))
	assert.True(t, math.IsNaN(ToNumber(Array(Number(1), Number(2)))))
	assert.True(t, math.IsNaN(ToNumber(Date(time.Now()))))
}

// ----------------------------------------------------------------------------
// ToBool Tests
// ----------------------------------------------------------------------------

func TestToBool(t *testing.T) {
	tests := []struct {
		name string
		in   CellValue
		want bool
	}{
		{"yes", String("Yes"), true},
		{"no", String("No"), false},
		{"NO upper", String("NO"), false},
		{"false", String("false"), false},
		{"zero text", String("0"), false},
		{"any text", String("maybe"), true},
		{"one", Number(1), true},
		{"zero", Number(0), false},
		{"NaN", Number(math.NaN()), false},
		{"native", Bool(false), false},
		{"empty array", Array(), false},
		{"array", Array(String("x")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToBool(tt.in).BoolVal()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ----------------------------------------------------------------------------
// ToArray Tests
// ----------------------------------------------------------------------------

func TestToArray(t *testing.T) {
	got := ToArray(String("red, blue,,green "), FormatString)
	assert.True(t, got.Equal(Array(String("red"), String("blue"), String("green"))))

	nums := ToArray(String("1, x, 2.5"), FormatNumber)
	assert.True(t, nums.Equal(Array(Number(1), Number(2.5))), "unparseable numeric elements are dropped")

	wrapped := ToArray(Number(4), FormatNumber)
	assert.True(t, wrapped.Equal(Array(Number(4))))

	same := Array(String("a"))
	assert.True(t, ToArray(same, FormatString).Equal(same))
}

// ----------------------------------------------------------------------------
// Dates
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-15", day},
		{"2024/03/15", day},
		{"3/15/2024", day},
		{"03-15-2024", day},
		{"Mar 15, 2024", day},
		{"March 15, 2024", day},
		{"15 Mar 2024", day},
		{"20240315", day},
		{"2024-03-15 10:30:00", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-03-15T10:30:00Z", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "not a date", "2024-13-45", "32/01/2024"} {
		_, ok := ParseDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	got, ok := ParseDate("1/2/24")
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	// far-future two-digit years fall back a century
	far := (time.Now().Year() + TwoDigitYearPivot + 5) % 100
	got, ok = ParseDate("1/2/" + twoDigits(far))
	require.True(t, ok)
	assert.Less(t, got.Year(), time.Now().Year())
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestSerialDates(t *testing.T) {
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), FromSerial(45000))
	assert.Equal(t, time.Date(2023, 3, 15, 12, 0, 0, 0, time.UTC), FromSerial(45000.5))
	assert.InDelta(t, 44927, ToSerial(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)), 1e-9)

	ts := time.Date(2024, 7, 4, 9, 15, 30, 0, time.UTC)
	assert.Equal(t, ts, FromSerial(ToSerial(ts)), "serial round trip keeps second precision")
}

func TestToDate(t *testing.T) {
	_, ok := ToDate(Number(0))
	assert.False(t, ok, "non-positive serials are not dates")
	_, ok = ToDate(Number(math.NaN()))
	assert.False(t, ok)
	_, ok = ToDate(Bool(true))
	assert.False(t, ok)

	got, ok := ToDate(Number(45000))
	require.True(t, ok)
	assert.Equal(t, 2023, got.Year())
}

// ----------------------------------------------------------------------------
// CleanCell / Coerce
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  hello  ", "hello"},
		{`="00123"`, "00123"},
		{`="`, `="`},
		{"=SUM(A1)", "=SUM(A1)"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanCell(tt.in), tt.in)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name   string
		raw    CellValue
		format Format
		want   CellValue
	}{
		{"blank is null", String("   "), FormatNumber, Null()},
		{"null is null", Null(), FormatString, Null()},
		{"string from number", Number(12), FormatString, String("12")},
		{"enum trims", String(" red "), FormatEnum, String("red")},
		{"formula text unwrapped", String(`="007"`), FormatString, String("007")},
		{"number from text", String("$1,000"), FormatNumber, Number(1000)},
		{"integer keeps fraction", String("2.5"), FormatInteger, Number(2.5)},
		{"boolean", String("No"), FormatBoolean, Bool(false)},
		{"array", String("a,b"), FormatArray, Array(String("a"), String("b"))},
		{"date truncates time", String("2024-03-15 10:30:00"), FormatDate, Date(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))},
		{"datetime keeps time", String("2024-03-15 10:30:00"), FormatDateTime, Date(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC))},
		{"unparseable date is null", String("soon"), FormatDate, Null()},
		{"unspecified passes through", Number(3), FormatUnspecified, Number(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coerce(tt.raw, col(tt.format))
			assert.True(t, tt.want.Equal(got), "got %#v want %#v", got, tt.want)
		})
	}
}

func TestCoerce_BadNumberIsNaN(t *testing.T) {
	got := Coerce(String("abc"), col(FormatNumber))
	n, ok := got.Num()
	require.True(t, ok)
	assert.True(t, math.IsNaN(n))
}
