package xlsxgrid

import (
	"github.com/unidoc/unioffice/color"
	"github.com/unidoc/unioffice/schema/soo/sml"
	"github.com/unidoc/unioffice/spreadsheet"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

// Header fills per tier.
var tierColors = map[core.Tier]color.Color{
	core.TierError: color.RGB(0xF4, 0xB0, 0xA6),
	core.TierWarn:  color.RGB(0xFC, 0xE4, 0x9C),
	core.TierInfo:  color.RGB(0xC6, 0xE5, 0xB3),
	core.TierNone:  color.RGB(0xE7, 0xE6, 0xE6),
}

var highlightColor = color.RGB(0xFF, 0xEB, 0x9C)

type cellKey struct {
	mask      string
	highlight bool
}

// styles creates cell styles lazily and shares them across cells.
type styles struct {
	wb      *spreadsheet.Workbook
	headers map[core.Tier]spreadsheet.CellStyle
	cells   map[cellKey]spreadsheet.CellStyle
	bold    spreadsheet.Font
}

func newStyles(wb *spreadsheet.Workbook) *styles {
	bold := wb.StyleSheet.AddFont()
	bold.SetBold(true)
	return &styles{
		wb:      wb,
		headers: make(map[core.Tier]spreadsheet.CellStyle),
		cells:   make(map[cellKey]spreadsheet.CellStyle),
		bold:    bold,
	}
}

func (s *styles) solidFill(c color.Color) spreadsheet.Fill {
	fill := s.wb.StyleSheet.Fills().AddFill()
	pf := fill.SetPatternFill()
	pf.SetPattern(sml.ST_PatternTypeSolid)
	pf.SetFgColor(c)
	return fill
}

func (s *styles) header(t core.Tier) spreadsheet.CellStyle {
	if cs, ok := s.headers[t]; ok {
		return cs
	}
	cs := s.wb.StyleSheet.AddCellStyle()
	cs.SetFont(s.bold)
	cs.SetFill(s.solidFill(tierColors[t]))
	cs.SetNumberFormat(core.MaskText)
	s.headers[t] = cs
	return cs
}

// cell returns the style for a data cell. An empty mask with no highlight
// needs no style at all.
func (s *styles) cell(mask string, highlight bool) (spreadsheet.CellStyle, bool) {
	if mask == core.MaskGeneral {
		mask = ""
	}
	if mask == "" && !highlight {
		return spreadsheet.CellStyle{}, false
	}
	key := cellKey{mask: mask, highlight: highlight}
	if cs, ok := s.cells[key]; ok {
		return cs, true
	}
	cs := s.wb.StyleSheet.AddCellStyle()
	if mask != "" {
		cs.SetNumberFormat(mask)
	}
	if highlight {
		cs.SetFill(s.solidFill(highlightColor))
	}
	s.cells[key] = cs
	return cs, true
}
