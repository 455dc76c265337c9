package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant a CellValue holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindArray:
		return "array"
	default:
		return "null"
	}
}

// CellValue is a strongly typed catalog value. The zero value is Null.
type CellValue struct {
	kind Kind
	str  string
	num  float64
	b    bool
	t    time.Time
	arr  []CellValue
}

// Null returns the "no value" CellValue.
func Null() CellValue { return CellValue{} }

// String returns a string CellValue.
func String(s string) CellValue { return CellValue{kind: KindString, str: s} }

// Number returns a numeric CellValue.
func Number(f float64) CellValue { return CellValue{kind: KindNumber, num: f} }

// Bool returns a boolean CellValue.
func Bool(b bool) CellValue { return CellValue{kind: KindBool, b: b} }

// Date returns a date CellValue.
func Date(t time.Time) CellValue { return CellValue{kind: KindDate, t: t} }

// Array returns an array CellValue. A nil slice yields an empty array.
func Array(vs ...CellValue) CellValue {
	if vs == nil {
		vs = []CellValue{}
	}
	return CellValue{kind: KindArray, arr: vs}
}

func (v CellValue) Kind() Kind   { return v.kind }
func (v CellValue) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v CellValue) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload.
func (v CellValue) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// BoolVal returns the boolean payload.
func (v CellValue) BoolVal() (bool, bool) { return v.b, v.kind == KindBool }

// Time returns the date payload.
func (v CellValue) Time() (time.Time, bool) { return v.t, v.kind == KindDate }

// Elems returns the array payload.
func (v CellValue) Elems() ([]CellValue, bool) { return v.arr, v.kind == KindArray }

// IsBlank reports whether the value carries no content: Null or an empty string.
func (v CellValue) IsBlank() bool {
	return v.kind == KindNull || (v.kind == KindString && strings.TrimSpace(v.str) == "")
}

// Text stringifies the value the way it would be typed into a cell.
func (v CellValue) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return formatDate(v.t)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.Text()
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// Equal reports whether two values hold the same variant and payload.
// NaN numbers compare equal to each other.
func (v CellValue) Equal(o CellValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.t.Equal(o.t)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v CellValue) GoString() string {
	return fmt.Sprintf("%s(%q)", v.kind, v.Text())
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

// MarshalJSON encodes the value as its natural JSON form. Dates become
// RFC 3339 strings and NaN becomes null.
func (v CellValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindDate:
		return json.Marshal(formatDate(v.t))
	case KindArray:
		return json.Marshal(v.arr)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes any JSON scalar or array. Objects are rejected.
func (v *CellValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// FromAny converts decoded JSON or YAML data into a CellValue.
func FromAny(raw any) (CellValue, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case CellValue:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case time.Time:
		return Date(x), nil
	case []any:
		elems := make([]CellValue, 0, len(x))
		for _, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			elems = append(elems, ev)
		}
		return Array(elems...), nil
	default:
		return Null(), fmt.Errorf("unsupported cell value type %T", raw)
	}
}
