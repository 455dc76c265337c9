package core

// render.go lays a model and its catalog records out as a grid description.
//
// The grid is technology-neutral: a sink (xlsx, HTML preview, JSON) decides
// how to encode headers, masks, validations, notes and bands. Enum values
// are materialized once into a side lookup sheet and referenced by range.

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/unidoc/unioffice/spreadsheet/reference"
)

const (
	// DataSheetName is the sheet holding headers and rows.
	DataSheetName = "Products"
	// ListSheetName is the side sheet holding enum value lists.
	ListSheetName = "Lists"
	// FingerprintHeader labels the trailing hidden column of live sheets.
	FingerprintHeader = "__fingerprint"
	// DefaultValidationRows is how many rows validations cover on an empty sheet.
	DefaultValidationRows = 1000
)

// HeaderCell is the first-row cell of a column.
type HeaderCell struct {
	Column Column `json:"column"`
	Text   string `json:"text"`
	Tier   Tier   `json:"tier"`
	Note   string `json:"note,omitempty"`
}

// ColumnRule is the cell validation a sink attaches to a column's data cells.
type ColumnRule struct {
	Column    int      `json:"column"`
	Format    Format   `json:"format"`
	Mask      string   `json:"mask,omitempty"`
	ListRange string   `json:"listRange,omitempty"`
	Choices   []string `json:"choices,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
}

// EnumList is one column of the lookup sheet.
type EnumList struct {
	Column int      `json:"column"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
	Range  string   `json:"range"`
}

// Band is a contiguous run of columns that share a tier.
type Band struct {
	Tier  Tier `json:"tier"`
	First int  `json:"first"`
	Last  int  `json:"last"`
}

// GridRow is one rendered data row.
type GridRow struct {
	Cells       []RenderCell `json:"cells"`
	Fingerprint string       `json:"fingerprint"`
}

// Grid is the complete render description of one sheet.
type Grid struct {
	Sheet   string       `json:"sheet"`
	Headers []HeaderCell `json:"headers"`
	Rows    []GridRow    `json:"rows"`
	Rules   []ColumnRule `json:"rules"`
	Lists   []EnumList   `json:"lists"`
	Bands   []Band       `json:"bands"`
}

// Render produces the grid for model and records. Records may be empty, in
// which case only headers and validations are produced.
func Render(model *Model, records []*CatalogRecord) Grid {
	cols := model.Columns()
	g := Grid{
		Sheet:   DataSheetName,
		Headers: make([]HeaderCell, 0, len(cols)),
		Rules:   make([]ColumnRule, 0, len(cols)),
	}

	for i, col := range cols {
		g.Headers = append(g.Headers, HeaderCell{
			Column: col,
			Text:   col.DisplayName,
			Tier:   col.Tier(),
			Note:   headerNote(col),
		})

		rule := ColumnRule{
			Column:    i,
			Format:    col.Validation.Format,
			Mask:      MaskFor(col.Validation.Format),
			Min:       col.Validation.Min,
			Max:       col.Validation.Max,
			MinLength: col.Validation.MinLength,
			MaxLength: col.Validation.MaxLength,
		}
		switch col.Validation.Format {
		case FormatEnum:
			if len(col.Validation.EnumVals) > 0 {
				list := enumList(len(g.Lists), col)
				g.Lists = append(g.Lists, list)
				rule.ListRange = list.Range
			}
		case FormatBoolean:
			rule.Choices = []string{BoolYes, BoolNo}
		}
		if col.Validation.RegexMessage != "" {
			rule.Prompt = col.Validation.RegexMessage
		}
		g.Rules = append(g.Rules, rule)

		if n := len(g.Bands); n > 0 && g.Bands[n-1].Tier == col.Tier() {
			g.Bands[n-1].Last = i
		} else {
			g.Bands = append(g.Bands, Band{Tier: col.Tier(), First: i, Last: i})
		}
	}

	for _, rec := range records {
		g.Rows = append(g.Rows, renderRow(cols, rec))
	}
	return g
}

func renderRow(cols []Column, rec *CatalogRecord) GridRow {
	row := GridRow{Cells: make([]RenderCell, len(cols))}
	for i, col := range cols {
		cell := RenderValue(rec.Value(col), col)
		if cell.Kind == RenderEmpty {
			cell.Mask = MaskFor(col.Validation.Format)
		}
		for _, ce := range rec.ComplianceFor(col) {
			cell.Notes = append(cell.Notes, SubstituteValue(ce.Message, cell))
			cell.Highlight = true
		}
		row.Cells[i] = cell
	}
	row.Fingerprint = Fingerprint(row.Cells)
	return row
}

// SubstituteValue replaces the literal ${value} token in a compliance
// message with the cell's text. The message is otherwise untouched.
func SubstituteValue(msg string, cell RenderCell) string {
	if !strings.Contains(msg, "${value}") {
		return msg
	}
	return strings.ReplaceAll(msg, "${value}", cellText(cell))
}

func cellText(c RenderCell) string {
	switch c.Kind {
	case RenderNumber:
		return formatNumber(c.Number)
	case RenderDate:
		return formatDate(c.Time)
	default:
		return c.Text
	}
}

// Fingerprint hashes the content of a rendered row. Live sheet sources use
// it to detect rows the user edited since the sheet was rendered.
func Fingerprint(cells []RenderCell) string {
	h := fnv.New64a()
	for _, c := range cells {
		h.Write([]byte(c.Kind))
		h.Write([]byte{0})
		h.Write([]byte(cellText(c)))
		h.Write([]byte{0x1f})
	}
	return strconv.FormatUint(h.Sum64(), 36)
}

func enumList(idx int, col Column) EnumList {
	letter := reference.IndexToColumn(uint32(idx))
	n := len(col.Validation.EnumVals)
	return EnumList{
		Column: idx,
		Name:   col.DisplayName,
		Values: cloneStrings(col.Validation.EnumVals),
		// values start below the list's header cell
		Range: fmt.Sprintf("%s!$%s$2:$%s$%d", ListSheetName, letter, letter, n+1),
	}
}

// headerNote builds the header annotation from the column's documentation
// text plus the constraints a user cannot see in the cell itself.
func headerNote(col Column) string {
	v := col.Validation
	var parts []string
	if v.Description != "" {
		parts = append(parts, v.Description)
	}
	if len(v.DependsOn) > 0 {
		parts = append(parts, "Required when "+strings.Join(v.DependsOn, ", ")+" is set.")
	}
	if col.IsImage() && (v.MinWidth != nil || v.MinHeight != nil) {
		parts = append(parts, fmt.Sprintf("Minimum size %sx%s px.", intOrAny(v.MinWidth), intOrAny(v.MinHeight)))
	}
	if v.DateInFuture {
		parts = append(parts, "Must be a future date.")
	}
	if col.Validation.Format == FormatArray {
		parts = append(parts, "Separate multiple values with commas.")
	}
	return strings.Join(parts, " ")
}

func intOrAny(i *int) string {
	if i == nil {
		return "any"
	}
	return strconv.Itoa(*i)
}
