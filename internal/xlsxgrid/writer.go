// Package xlsxgrid encodes a core.Grid as an xlsx workbook and reads xlsx
// workbooks back as a core.RowSource.
//
// A written workbook has two sheets: the data sheet (headers, rows, cell
// validations, notes and a hidden fingerprint column) and the lookup sheet
// holding one column of values per enum.
package xlsxgrid

import (
	"fmt"
	"io"
	"strconv"

	"github.com/unidoc/unioffice"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

// DefaultAuthor signs cell notes.
const DefaultAuthor = "catalogsheet"

// Options control workbook layout.
type Options struct {
	// ValidationRows is the minimum number of data rows covered by cell
	// validations. Defaults to core.DefaultValidationRows.
	ValidationRows int
	// Author signs notes. Defaults to DefaultAuthor.
	Author string
}

func (o Options) withDefaults() Options {
	if o.ValidationRows <= 0 {
		o.ValidationRows = core.DefaultValidationRows
	}
	if o.Author == "" {
		o.Author = DefaultAuthor
	}
	return o
}

// Write encodes g as an xlsx workbook to w.
func Write(w io.Writer, g core.Grid, opts Options) error {
	opts = opts.withDefaults()

	wb := spreadsheet.New()
	defer wb.Close()

	sheet := wb.AddSheet()
	sheet.SetName(g.Sheet)
	st := newStyles(wb)

	if err := writeHeader(sheet, st, g, opts); err != nil {
		return err
	}
	if err := writeRows(sheet, st, g, opts); err != nil {
		return err
	}
	writeRules(sheet, st, g, opts)
	if len(g.Lists) > 0 {
		writeLists(wb, g.Lists)
	}

	if err := wb.Save(w); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func colRef(i int) string {
	return reference.IndexToColumn(uint32(i))
}

func cellRef(col, row int) string {
	return colRef(col) + strconv.Itoa(row)
}

func writeHeader(sheet spreadsheet.Sheet, st *styles, g core.Grid, opts Options) error {
	row := sheet.AddRow()
	for i, h := range g.Headers {
		c := row.AddCell()
		c.SetString(h.Text)
		c.SetStyle(st.header(h.Tier))
		if h.Note != "" {
			if err := sheet.Comments().AddCommentWithStyle(cellRef(i, 1), opts.Author, h.Note); err != nil {
				return fmt.Errorf("header note %s: %w", h.Text, err)
			}
		}
	}

	fp := row.AddCell()
	fp.SetString(core.FingerprintHeader)
	fpCol := sheet.Column(uint32(len(g.Headers) + 1))
	fpCol.X().HiddenAttr = unioffice.Bool(true)

	sheet.SetFrozen(true, false)
	return nil
}

func writeRows(sheet spreadsheet.Sheet, st *styles, g core.Grid, opts Options) error {
	for r, gr := range g.Rows {
		row := sheet.AddRow()
		for i, rc := range gr.Cells {
			c := row.AddCell()
			setValue(c, rc)
			if cs, ok := st.cell(rc.Mask, rc.Highlight); ok {
				c.SetStyle(cs)
			}
			for _, note := range rc.Notes {
				if err := sheet.Comments().AddCommentWithStyle(cellRef(i, r+2), opts.Author, note); err != nil {
					return fmt.Errorf("row %d note: %w", r+2, err)
				}
			}
		}
		fp := row.AddCell()
		fp.SetString(gr.Fingerprint)
	}
	return nil
}

func setValue(c spreadsheet.Cell, rc core.RenderCell) {
	switch rc.Kind {
	case core.RenderString, core.RenderBoolean:
		c.SetString(rc.Text)
	case core.RenderNumber:
		c.SetNumber(rc.Number)
	case core.RenderDate:
		c.SetNumber(core.ToSerial(rc.Time))
	}
}

// writeRules attaches validations and column masks to every header column
// down to the covered row count.
func writeRules(sheet spreadsheet.Sheet, st *styles, g core.Grid, opts Options) {
	last := len(g.Rows) + 1
	if opts.ValidationRows+1 > last {
		last = opts.ValidationRows + 1
	}

	for _, rule := range g.Rules {
		if cs, ok := st.cell(rule.Mask, false); ok {
			sheet.Column(uint32(rule.Column + 1)).SetStyle(cs)
		}

		letter := colRef(rule.Column)
		rng := fmt.Sprintf("%s2:%s%d", letter, letter, last)

		switch {
		case rule.ListRange != "":
			dv := newValidation(sheet, rng, rule.Prompt)
			dv.SetList().SetRange(rule.ListRange)
		case len(rule.Choices) > 0:
			dv := newValidation(sheet, rng, rule.Prompt)
			dv.SetList().SetValues(rule.Choices)
		case rule.Min != nil || rule.Max != nil:
			typ := spreadsheet.DVCompareTypeDecimal
			if rule.Format == core.FormatInteger {
				typ = spreadsheet.DVCompareTypeWholeNumber
			}
			dv := newValidation(sheet, rng, rule.Prompt)
			compare(dv, typ, floatText(rule.Min), floatText(rule.Max))
		case rule.MinLength != nil || rule.MaxLength != nil:
			dv := newValidation(sheet, rng, rule.Prompt)
			compare(dv, spreadsheet.DVompareTypeTextLength, intText(rule.MinLength), intText(rule.MaxLength))
		case rule.Prompt != "":
			newValidation(sheet, rng, rule.Prompt)
		}
	}
}

func newValidation(sheet spreadsheet.Sheet, rng, prompt string) spreadsheet.DataValidation {
	dv := sheet.AddDataValidation()
	dv.SetRange(rng)
	dv.SetAllowBlank(true)
	if prompt != "" {
		dv.X().PromptAttr = unioffice.String(prompt)
		dv.X().ShowInputMessageAttr = unioffice.Bool(true)
	}
	return dv
}

func compare(dv spreadsheet.DataValidation, typ spreadsheet.DVCompareType, lo, hi string) {
	switch {
	case lo != "" && hi != "":
		cmp := dv.SetComparison(typ, spreadsheet.DVCompareOpBetween)
		cmp.SetValue(lo)
		cmp.SetValue2(hi)
	case lo != "":
		dv.SetComparison(typ, spreadsheet.DVCompareOpGreaterEqual).SetValue(lo)
	default:
		dv.SetComparison(typ, spreadsheet.DVCompareOpLessEqual).SetValue(hi)
	}
}

func floatText(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func intText(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// writeLists fills the lookup sheet. Each enum gets a labelled column whose
// values start on row 2, matching the ranges the grid already references.
func writeLists(wb *spreadsheet.Workbook, lists []core.EnumList) {
	sheet := wb.AddSheet()
	sheet.SetName(core.ListSheetName)
	for _, l := range lists {
		sheet.Cell(cellRef(l.Column, 1)).SetString(l.Name)
		for i, v := range l.Values {
			sheet.Cell(cellRef(l.Column, i+2)).SetString(v)
		}
	}
}
