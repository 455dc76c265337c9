package core

import (
	"fmt"

	"golang.org/x/text/cases"
)

// headerFolder folds display names for case-insensitive header matching.
var headerFolder = cases.Fold()

// FoldHeader normalizes a header cell for lookup in the display-name index.
func FoldHeader(s string) string {
	return headerFolder.String(CleanCell(s))
}

// Model holds the compiled columns of one (supplier, retailer, category)
// scope and, optionally, the catalog records to render with them.
type Model struct {
	Scope   Scope
	Records []*CatalogRecord

	tiers         [4][]*Column
	bySaveName    map[string]*Column
	byDisplayName map[string]*Column
	imageColumns  []*Column
}

// NewModel builds a model from compiled columns.
func NewModel(scope Scope, columns []Column) *Model {
	m := &Model{
		Scope:         scope,
		bySaveName:    make(map[string]*Column, len(columns)),
		byDisplayName: make(map[string]*Column, len(columns)),
	}
	for _, c := range columns {
		m.AddColumn(c)
	}
	return m
}

// AddColumn registers a column in its tier bucket and in both indices.
// Adding a column twice is a programming error and panics.
func (m *Model) AddColumn(c Column) {
	if m.bySaveName == nil {
		m.bySaveName = make(map[string]*Column)
		m.byDisplayName = make(map[string]*Column)
	}

	save := c.SaveName()
	if _, exists := m.bySaveName[save]; exists {
		panic(fmt.Sprintf("column already registered: %s", save))
	}
	display := FoldHeader(c.DisplayName)
	if _, exists := m.byDisplayName[display]; exists {
		panic(fmt.Sprintf("display name already registered: %s", c.DisplayName))
	}

	col := c.Clone()
	tier := col.Tier()
	if tier < TierError || tier > TierNone {
		tier = TierNone
		col.Validation.Required = TierNone
	}

	m.tiers[tier] = append(m.tiers[tier], &col)
	m.bySaveName[save] = &col
	m.byDisplayName[display] = &col
	if col.IsImage() {
		m.imageColumns = append(m.imageColumns, &col)
	}
}

// Columns returns every column in rendering order: error, warn, info, none.
func (m *Model) Columns() []Column {
	out := make([]Column, 0, len(m.bySaveName))
	for _, t := range Tiers {
		for _, c := range m.tiers[t] {
			out = append(out, *c)
		}
	}
	return out
}

// Tier returns the columns of a single tier bucket.
func (m *Model) Tier(t Tier) []Column {
	if t < TierError || t > TierNone {
		return nil
	}
	out := make([]Column, len(m.tiers[t]))
	for i, c := range m.tiers[t] {
		out[i] = *c
	}
	return out
}

// BySaveName looks a column up by its save name.
func (m *Model) BySaveName(name string) (Column, bool) {
	c, ok := m.bySaveName[name]
	if !ok {
		return Column{}, false
	}
	return *c, true
}

// ByDisplayName looks a column up by its display name, ignoring case.
func (m *Model) ByDisplayName(name string) (Column, bool) {
	c, ok := m.byDisplayName[FoldHeader(name)]
	if !ok {
		return Column{}, false
	}
	return *c, true
}

// ImageColumns returns the image-format columns in registration order.
func (m *Model) ImageColumns() []Column {
	out := make([]Column, len(m.imageColumns))
	for i, c := range m.imageColumns {
		out[i] = *c
	}
	return out
}

// Len returns the number of columns.
func (m *Model) Len() int {
	return len(m.bySaveName)
}

// Identifier returns the sku column, if the schema has one.
func (m *Model) Identifier() (Column, bool) {
	return m.BySaveName(FieldSKU)
}
