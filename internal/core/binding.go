package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

// RawRow is one physical row as read by a grid source.
type RawRow struct {
	Number int
	Values []CellValue

	// Fingerprint is the stored fingerprint of a live sheet row, if any.
	Fingerprint string
}

// RowSource reads physical rows from a spreadsheet file.
type RowSource interface {
	// Header returns the first row of the data sheet.
	Header() ([]string, error)
	// Next returns the next data row, or io.EOF.
	Next() (RawRow, error)
	// Live reports whether rows carry fingerprints from a previous render.
	// Flat files are not live and every row is treated as modified.
	Live() bool
}

// Binding maps the positions of a header row onto model columns.
type Binding struct {
	columns     []*Column
	fingerprint int
	live        bool
	unknown     []string
}

// Bind matches a header row against the model's display names. Headers with
// no matching column are skipped and reported by Unknown.
func Bind(model *Model, header []string, live bool) (*Binding, error) {
	if len(header) == 0 {
		return nil, ErrNoHeader
	}

	b := &Binding{
		columns:     make([]*Column, len(header)),
		fingerprint: -1,
		live:        live,
	}
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = CleanCell(h)
		if h == "" {
			continue
		}
		if h == FingerprintHeader {
			b.fingerprint = i
			continue
		}
		col, ok := model.ByDisplayName(h)
		if !ok {
			b.unknown = append(b.unknown, h)
			continue
		}
		if seen[col.SaveName()] {
			// a repeated header only binds its first occurrence
			continue
		}
		seen[col.SaveName()] = true
		c := col
		b.columns[i] = &c
	}
	return b, nil
}

// Unknown returns the header texts that matched no column.
func (b *Binding) Unknown() []string {
	return b.unknown
}

// FingerprintIndex returns the position of the fingerprint column, or -1.
func (b *Binding) FingerprintIndex() int {
	return b.fingerprint
}

// Row pairs raw values with their columns and derives the a-priori
// modified flag.
func (b *Binding) Row(raw RawRow) Row {
	row := Row{Number: raw.Number, Modified: true}
	var rendered []RenderCell
	for i, col := range b.columns {
		if col == nil {
			continue
		}
		v := Null()
		if i < len(raw.Values) {
			v = raw.Values[i]
		}
		row.Cells = append(row.Cells, RowCell{Raw: v, Column: *col})
		rendered = append(rendered, RenderValue(Coerce(v, *col), *col))
	}

	if b.live {
		stored := raw.Fingerprint
		if stored == "" && b.fingerprint >= 0 && b.fingerprint < len(raw.Values) {
			stored = raw.Values[b.fingerprint].Text()
		}
		row.Modified = stored == "" || stored != Fingerprint(rendered)
	}
	return row
}

// IsBlank reports whether every value of the raw row is blank.
func (raw RawRow) IsBlank() bool {
	for _, v := range raw.Values {
		if !v.IsBlank() {
			return false
		}
	}
	return true
}

// ReadRows binds a row source to the model and reads every non-blank row.
func ReadRows(ctx context.Context, model *Model, src RowSource) ([]Row, error) {
	header, err := src.Header()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	b, err := Bind(model, header, src.Live())
	if err != nil {
		return nil, err
	}
	if unknown := b.Unknown(); len(unknown) > 0 {
		logging.WithScope(ctx, model.Scope.Key()).Warn("ignoring unknown columns",
			"columns", unknown,
		)
	}

	var rows []Row
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if raw.IsBlank() {
			continue
		}
		rows = append(rows, b.Row(raw))
	}
	return rows, nil
}
