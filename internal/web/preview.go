package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

var tierBackground = map[core.Tier]string{
	core.TierError: "#f4cccc",
	core.TierWarn:  "#fff2cc",
	core.TierInfo:  "#d9ead3",
	core.TierNone:  "#eeeeee",
}

const highlightBackground = "#ffd966"

// PreviewPage renders a grid as a read-only HTML table. Header cells carry
// the tier color of their band and highlighted cells show their notes.
func PreviewPage(scope core.Scope, g core.Grid) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.printf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title>", templ.EscapeString(scope.Key()))
		p.printf("<style>table{border-collapse:collapse;font:13px sans-serif}th,td{border:1px solid #bbb;padding:4px 6px}td.hl{background:%s}</style>", highlightBackground)
		p.printf("</head><body><h1>%s</h1>", templ.EscapeString(scope.Key()))

		p.printf("<table><thead><tr>")
		for _, b := range g.Bands {
			p.printf("<th colspan=\"%d\" style=\"background:%s\">%s</th>",
				b.Last-b.First+1, tierBackground[b.Tier], templ.EscapeString(b.Tier.Label()))
		}
		p.printf("</tr><tr>")
		for _, h := range g.Headers {
			p.printf("<th style=\"background:%s\" title=\"%s\">%s</th>",
				tierBackground[h.Tier], templ.EscapeString(h.Note), templ.EscapeString(h.Text))
		}
		p.printf("</tr></thead><tbody>")

		if len(g.Rows) == 0 {
			p.printf("<tr><td colspan=\"%d\">No catalog records selected.</td></tr>", max(len(g.Headers), 1))
		}
		for _, row := range g.Rows {
			p.printf("<tr>")
			for _, c := range row.Cells {
				class := ""
				if c.Highlight {
					class = " class=\"hl\""
				}
				p.printf("<td%s title=\"%s\">%s</td>", class,
					templ.EscapeString(strings.Join(c.Notes, "\n")), templ.EscapeString(previewText(c)))
			}
			p.printf("</tr>")
		}
		p.printf("</tbody></table></body></html>")
		return p.err
	})
}

func previewText(c core.RenderCell) string {
	switch c.Kind {
	case core.RenderEmpty:
		return ""
	case core.RenderNumber:
		return fmt.Sprintf("%g", c.Number)
	case core.RenderDate:
		if c.Mask == core.MaskDate {
			return c.Time.Format("2006-01-02")
		}
		return c.Time.Format("2006-01-02 15:04:05")
	default:
		return c.Text
	}
}

// pageWriter keeps the first write error so rendering reads linearly.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
