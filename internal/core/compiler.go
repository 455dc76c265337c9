package core

import (
	"fmt"
	"regexp"
	"strings"
)

// deniedFields are system-managed paths that never become columns.
var deniedFields = map[string]bool{
	"id":            true,
	"_id":           true,
	"supplier_id":   true,
	"retailer_id":   true,
	"category_id":   true,
	"created_at":    true,
	"updated_at":    true,
	"deleted_at":    true,
	"version":       true,
	"compliance":    true,
	"warehouses":    true,
	"images":        true,
	"custom":        true,
	"__v":           true,
	"__fingerprint": true,
}

var (
	// deniedPatterns catch internal namespaces and array-index paths.
	deniedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^_`),
		regexp.MustCompile(`^(internal|meta|system)\.`),
		regexp.MustCompile(`(^|\.)\d+(\.|$)`),
		regexp.MustCompile(`\[\d*\]`),
		regexp.MustCompile(`^warehouses\.`),
	}

	// allowedImage paths are kept even when a deny pattern matches.
	allowedImage = regexp.MustCompile(`(^|\.)images\.[^.]+$`)
)

// IsExcluded reports whether a field path is dropped by the compiler.
func IsExcluded(path string) bool {
	if path == "" {
		return true
	}
	if allowedImage.MatchString(path) {
		return false
	}
	if deniedFields[strings.ToLower(path)] {
		return true
	}
	for _, re := range deniedPatterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// columnSet is one ownership namespace of columns being compiled.
type columnSet struct {
	own  Ownership
	cols map[string]*Column
}

func (s *columnSet) get(path string) (*Column, bool) {
	c, ok := s.cols[path]
	return c, ok
}

// compiler accumulates columns for both ownership namespaces while keeping
// first-seen order across them.
type compiler struct {
	sets  [2]*columnSet
	order []*Column
}

func newCompiler() *compiler {
	return &compiler{
		sets: [2]*columnSet{
			{own: Core, cols: make(map[string]*Column)},
			{own: Extended, cols: make(map[string]*Column)},
		},
	}
}

func (c *compiler) resolve(path string, own Ownership) *Column {
	set := c.sets[own]
	if col, ok := set.get(path); ok {
		return col
	}
	col := &Column{
		FieldPath:   path,
		DisplayName: path,
		Ownership:   own,
		Validation:  Validation{Required: TierNone},
	}
	if own == Extended {
		col.Validation.Required = TierInfo
	}
	set.cols[path] = col
	c.order = append(c.order, col)
	return col
}

// Compile turns an unordered stream of rule records into an ordered column
// list. The identifier column comes first when present; the rest keep the
// order in which rules first mentioned them.
func Compile(rules []RuleRecord) []Column {
	c := newCompiler()

	for _, r := range rules {
		handler, ok := ruleHandlers[r.Type]
		if !ok {
			continue
		}
		for _, p := range handler(r, ownershipOf(r)) {
			if IsExcluded(p.FieldPath) {
				continue
			}
			apply(c.resolve(p.FieldPath, p.Ownership), p)
		}
	}

	// A path in both namespaces keeps the extended name and prefixes the core
	// one. Paths compare folded, the way headers are matched.
	extended := make(map[string]bool, len(c.sets[Extended].cols))
	for path := range c.sets[Extended].cols {
		extended[FoldHeader(path)] = true
	}
	for path, col := range c.sets[Core].cols {
		if extended[FoldHeader(path)] {
			col.DisplayName = CoreCollisionPrefix + path
		}
	}
	uniqueDisplayNames(c.order)

	out := make([]Column, 0, len(c.order))
	for _, col := range c.order {
		if col.FieldPath == FieldSKU && col.Ownership == Core {
			out = append([]Column{col.Clone()}, out...)
			continue
		}
		out = append(out, col.Clone())
	}
	return out
}

// uniqueDisplayNames numbers the later of two display names that fold to the
// same header, e.g. core paths "Color" and "color".
func uniqueDisplayNames(cols []*Column) {
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		name := col.DisplayName
		for n := 2; seen[FoldHeader(name)]; n++ {
			name = fmt.Sprintf("%s (%d)", col.DisplayName, n)
		}
		col.DisplayName = name
		seen[FoldHeader(name)] = true
	}
}

// apply merges one patch into a column. It owns every cross-rule policy:
// enums are never widened back to strings, numeric formats default min to
// zero the first time they are set, and the most restrictive tier wins.
func apply(col *Column, p ColumnPatch) {
	v := &col.Validation

	if p.Format != FormatUnspecified {
		switch {
		case v.Format == FormatEnum && p.Format == FormatString:
			// keep the enum
		default:
			if p.Format.IsNumeric() && !v.Format.IsNumeric() && v.Min == nil {
				zero := 0.0
				v.Min = &zero
			}
			v.Format = p.Format
			if p.Format == FormatArray {
				v.ArrayElementType = p.ArrayElement
			}
		}
	}
	if p.Required != nil {
		v.Required = MostRestrictive(v.Required, *p.Required)
	}
	if p.EnumVals != nil {
		v.EnumVals = cloneStrings(p.EnumVals)
	}
	if p.Min != nil {
		v.Min = cloneFloat(p.Min)
	}
	if p.Max != nil {
		v.Max = cloneFloat(p.Max)
	}
	if p.MinLength != nil {
		v.MinLength = cloneInt(p.MinLength)
	}
	if p.MaxLength != nil {
		v.MaxLength = cloneInt(p.MaxLength)
	}
	if p.Match != "" {
		v.Match = p.Match
	}
	if len(p.DontMatch) > 0 {
		v.DontMatch = append(v.DontMatch, p.DontMatch...)
	}
	if p.RegexMessage != "" {
		v.RegexMessage = p.RegexMessage
	}
	if p.DateInFuture {
		v.DateInFuture = true
	}
	if p.MinWidth != nil {
		v.MinWidth = cloneInt(p.MinWidth)
	}
	if p.MinHeight != nil {
		v.MinHeight = cloneInt(p.MinHeight)
	}
	if len(p.DependsOn) > 0 {
		v.DependsOn = append(v.DependsOn, p.DependsOn...)
	}
	if p.Description != "" && v.Description == "" {
		v.Description = p.Description
	}
}
