package core

import (
	"math"
	"strings"
	"time"
)

// RenderKind tags how a rendered cell must be written by a grid sink.
type RenderKind string

const (
	RenderEmpty   RenderKind = "empty"
	RenderString  RenderKind = "string"
	RenderNumber  RenderKind = "number"
	RenderBoolean RenderKind = "boolean"
	RenderDate    RenderKind = "date"
)

// Display masks applied per format.
const (
	MaskText     = "@"
	MaskGeneral  = "General"
	MaskInteger  = "0"
	MaskDate     = "yyyy-mm-dd"
	MaskDateTime = "yyyy-mm-dd hh:mm:ss"
)

// Boolean cell texts.
const (
	BoolYes = "Yes"
	BoolNo  = "No"
)

// RenderCell is the renderable form of one catalog value.
type RenderCell struct {
	Kind      RenderKind `json:"kind"`
	Text      string     `json:"text,omitempty"`
	Number    float64    `json:"number,omitempty"`
	Time      time.Time  `json:"time,omitempty"`
	Mask      string     `json:"mask,omitempty"`
	Notes     []string   `json:"notes,omitempty"`
	Highlight bool       `json:"highlight,omitempty"`
}

// Value converts the rendered cell back into the raw value a grid source
// would read for it.
func (c RenderCell) Value() CellValue {
	switch c.Kind {
	case RenderString, RenderBoolean:
		return String(c.Text)
	case RenderNumber:
		return Number(c.Number)
	case RenderDate:
		return Date(c.Time)
	default:
		return Null()
	}
}

// SameContent compares the data of two cells, ignoring annotations.
func (c RenderCell) SameContent(o RenderCell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case RenderNumber:
		return c.Number == o.Number
	case RenderDate:
		return c.Time.Equal(o.Time)
	case RenderEmpty:
		return true
	default:
		return c.Text == o.Text
	}
}

// MaskFor returns the display mask for a format.
func MaskFor(f Format) string {
	switch f {
	case FormatInteger:
		return MaskInteger
	case FormatNumber:
		return MaskGeneral
	case FormatDate:
		return MaskDate
	case FormatDateTime:
		return MaskDateTime
	case FormatUnspecified, FormatBoolean:
		return ""
	default:
		return MaskText
	}
}

// RenderValue maps a typed catalog value back to a cell for col.
func RenderValue(v CellValue, col Column) RenderCell {
	f := col.Validation.Format
	cell := renderValue(v, f)
	if cell.Kind != RenderEmpty {
		cell.Mask = MaskFor(f)
	}
	return cell
}

func renderValue(v CellValue, f Format) RenderCell {
	if v.IsNull() {
		return RenderCell{Kind: RenderEmpty}
	}

	switch f {
	case FormatNumber, FormatInteger:
		n := ToNumber(v)
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return RenderCell{Kind: RenderEmpty}
		}
		return RenderCell{Kind: RenderNumber, Number: n}
	case FormatBoolean:
		return renderBool(ToBool(v))
	case FormatDate, FormatDateTime:
		if t, ok := ToDate(v); ok {
			return RenderCell{Kind: RenderDate, Time: t}
		}
		// unparseable dates stay as typed
		return RenderCell{Kind: RenderString, Text: v.Text()}
	case FormatArray:
		return renderText(joinArray(v))
	case FormatUnspecified:
		return renderNative(v)
	default:
		return renderText(v.Text())
	}
}

func renderNative(v CellValue) RenderCell {
	switch v.Kind() {
	case KindNumber:
		if math.IsNaN(v.num) {
			return RenderCell{Kind: RenderEmpty}
		}
		return RenderCell{Kind: RenderNumber, Number: v.num}
	case KindBool:
		return renderBool(v)
	case KindDate:
		return RenderCell{Kind: RenderDate, Time: v.t}
	case KindArray:
		return renderText(joinArray(v))
	default:
		return renderText(v.Text())
	}
}

func renderBool(v CellValue) RenderCell {
	if v.b {
		return RenderCell{Kind: RenderBoolean, Text: BoolYes}
	}
	return RenderCell{Kind: RenderBoolean, Text: BoolNo}
}

func renderText(s string) RenderCell {
	if s == "" {
		return RenderCell{Kind: RenderEmpty}
	}
	return RenderCell{Kind: RenderString, Text: s}
}

func joinArray(v CellValue) string {
	elems, ok := v.Elems()
	if !ok {
		return v.Text()
	}
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		if t := e.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, ", ")
}
