package xlsxgrid

import (
	"fmt"
	"io"

	"github.com/unidoc/unioffice/schema/soo/sml"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unioffice/spreadsheet/reference"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

// Source is a core.RowSource over the data sheet of an xlsx workbook.
// A workbook carrying the fingerprint column is live: rows whose content
// still matches their stored fingerprint are reported as unmodified.
type Source struct {
	wb     *spreadsheet.Workbook
	rows   []spreadsheet.Row
	next   int
	header []string
	fp     int
}

// Open reads a workbook. The data sheet is the sheet named
// core.DataSheetName, or the first sheet when no sheet has that name.
func Open(r io.ReaderAt, size int64) (*Source, error) {
	wb, err := spreadsheet.Read(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnsupportedFile, err)
	}

	sheets := wb.Sheets()
	if len(sheets) == 0 {
		wb.Close()
		return nil, core.ErrNoHeader
	}
	sheet := sheets[0]
	for _, s := range sheets {
		if s.Name() == core.DataSheetName {
			sheet = s
			break
		}
	}

	src := &Source{wb: wb, rows: sheet.Rows(), fp: -1}
	return src, nil
}

// Close releases the workbook.
func (s *Source) Close() error {
	return s.wb.Close()
}

// Header implements core.RowSource.
func (s *Source) Header() ([]string, error) {
	if s.header != nil {
		return s.header, nil
	}
	if len(s.rows) == 0 {
		return nil, core.ErrNoHeader
	}

	values := rowValues(s.rows[0])
	header := make([]string, len(values))
	for i, v := range values {
		header[i] = core.CleanCell(v.Text())
		if header[i] == core.FingerprintHeader {
			s.fp = i
		}
	}
	s.header = header
	s.next = 1
	return header, nil
}

// Next implements core.RowSource.
func (s *Source) Next() (core.RawRow, error) {
	if s.header == nil {
		if _, err := s.Header(); err != nil {
			return core.RawRow{}, err
		}
	}
	if s.next >= len(s.rows) {
		return core.RawRow{}, io.EOF
	}
	row := s.rows[s.next]
	s.next++

	raw := core.RawRow{Number: int(row.RowNumber()), Values: rowValues(row)}
	if s.fp >= 0 && s.fp < len(raw.Values) {
		raw.Fingerprint = raw.Values[s.fp].Text()
		raw.Values[s.fp] = core.Null()
	}
	return raw, nil
}

// Live implements core.RowSource.
func (s *Source) Live() bool {
	return s.fp >= 0
}

// rowValues positions each cell by its column reference, so sparse rows
// keep their alignment with the header.
func rowValues(row spreadsheet.Row) []core.CellValue {
	var out []core.CellValue
	for _, c := range row.Cells() {
		name, err := c.Column()
		if err != nil {
			continue
		}
		idx := int(reference.ColumnToIndex(name))
		for len(out) <= idx {
			out = append(out, core.Null())
		}
		out[idx] = cellValue(c)
	}
	return out
}

func cellValue(c spreadsheet.Cell) core.CellValue {
	if c.IsEmpty() {
		return core.Null()
	}
	if c.X().TAttr == sml.ST_CellTypeB {
		if b, err := c.GetValueAsBool(); err == nil {
			return core.Bool(b)
		}
	}
	if c.IsNumber() {
		if f, err := c.GetValueAsNumber(); err == nil {
			return core.Number(f)
		}
	}
	v, err := c.GetRawValue()
	if err != nil {
		return core.String(c.GetFormattedValue())
	}
	return core.String(v)
}
