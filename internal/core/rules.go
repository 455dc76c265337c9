package core

import (
	"fmt"
	"strings"
)

// RuleKind is the closed set of attribute rule types.
type RuleKind string

const (
	RuleRequired            RuleKind = "required"
	RuleCatalogRequired     RuleKind = "catalog_required"
	RuleConditionalRequired RuleKind = "conditional_required"
	RuleEnumMatch           RuleKind = "enum_match"
	RuleFormat              RuleKind = "format"
	RuleRange               RuleKind = "range"
	RuleLengthRange         RuleKind = "length_range"
	RulePatternMatch        RuleKind = "pattern_match"
	RuleMultiPattern        RuleKind = "multi_pattern"
	RuleDateInFuture        RuleKind = "date_in_future"
	RuleImage               RuleKind = "image"
	RuleCatalogImage        RuleKind = "catalog_image"
)

var ruleKinds = map[RuleKind]bool{
	RuleRequired: true, RuleCatalogRequired: true, RuleConditionalRequired: true,
	RuleEnumMatch: true, RuleFormat: true, RuleRange: true, RuleLengthRange: true,
	RulePatternMatch: true, RuleMultiPattern: true, RuleDateInFuture: true,
	RuleImage: true, RuleCatalogImage: true,
}

// ParseRuleKind validates a rule type name.
func ParseRuleKind(s string) (RuleKind, error) {
	k := RuleKind(strings.ToLower(strings.TrimSpace(s)))
	if !ruleKinds[k] {
		return "", fmt.Errorf("%w: %q", ErrUnknownRuleKind, s)
	}
	return k, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RuleKind) UnmarshalText(b []byte) error {
	parsed, err := ParseRuleKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AttrType is the rule source's classification of an attribute.
type AttrType string

const (
	AttrCore   AttrType = "core"
	AttrCustom AttrType = "custom"
)

// RulePayload carries the kind-specific data of a rule. Only the fields
// relevant to the rule's kind are set.
type RulePayload struct {
	Fields        []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Values        []string `json:"values,omitempty" yaml:"values,omitempty"`
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength     *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Patterns      []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Message       string   `json:"message,omitempty" yaml:"message,omitempty"`
	PrimaryType   string   `json:"type,omitempty" yaml:"dataType,omitempty"`
	SecondaryType string   `json:"subtype,omitempty" yaml:"dataSubtype,omitempty"`
	ImageName     string   `json:"imageName,omitempty" yaml:"imageName,omitempty"`
	MinWidth      *int     `json:"minWidth,omitempty" yaml:"minWidth,omitempty"`
	MinHeight     *int     `json:"minHeight,omitempty" yaml:"minHeight,omitempty"`
	InFuture      bool     `json:"inFuture,omitempty" yaml:"inFuture,omitempty"`
	DependsOn     []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// RuleRecord is one attribute rule as delivered by a rule source.
type RuleRecord struct {
	FieldPath string      `json:"fieldPath" yaml:"field"`
	Type      RuleKind    `json:"ruleType" yaml:"type"`
	Severity  Tier        `json:"severity" yaml:"severity"`
	AttrType  AttrType    `json:"attrType" yaml:"attrType"`
	Payload   RulePayload `json:"payload" yaml:",inline"`
}

// reservedPrefixes are field path prefixes owned by the platform schema.
// Conditionally required rules on these paths always target core columns.
var reservedPrefixes = []string{"images.", "packaging.", "dimensions.", "nutrition."}

func hasReservedPrefix(path string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ownershipOf resolves which column namespace a rule targets.
func ownershipOf(r RuleRecord) Ownership {
	if r.Type == RuleConditionalRequired {
		if hasReservedPrefix(NormalizeFieldPath(r.FieldPath)) {
			return Core
		}
		return Extended
	}
	if r.AttrType == AttrCustom {
		return Extended
	}
	return Core
}

// ColumnPatch is the mutation one rule applies to one column. Nil and zero
// fields leave the column untouched.
type ColumnPatch struct {
	FieldPath    string
	Ownership    Ownership
	Format       Format
	ArrayElement Format
	Required     *Tier
	EnumVals     []string
	Min          *float64
	Max          *float64
	MinLength    *int
	MaxLength    *int
	Match        string
	DontMatch    []string
	RegexMessage string
	DateInFuture bool
	MinWidth     *int
	MinHeight    *int
	DependsOn    []string
	Description  string
}

// ruleHandler turns one rule into zero or more column patches.
type ruleHandler func(r RuleRecord, own Ownership) []ColumnPatch

var ruleHandlers = map[RuleKind]ruleHandler{
	RuleRequired:            requiredPatches,
	RuleCatalogRequired:     requiredPatches,
	RuleConditionalRequired: conditionalPatches,
	RuleEnumMatch:           enumPatches,
	RuleFormat:              formatPatches,
	RuleRange:               actionable(rangePatches),
	RuleLengthRange:         actionable(lengthPatches),
	RulePatternMatch:        actionable(patternPatches),
	RuleMultiPattern:        actionable(multiPatternPatches),
	RuleDateInFuture:        actionable(futurePatches),
	RuleImage:               imagePatches,
	RuleCatalogImage:        imagePatches,
}

// actionable drops constraints whose severity is informational only.
func actionable(h ruleHandler) ruleHandler {
	return func(r RuleRecord, own Ownership) []ColumnPatch {
		if r.Severity >= TierInfo {
			return nil
		}
		return h(r, own)
	}
}

func tierPtr(t Tier) *Tier { return &t }

func base(r RuleRecord, own Ownership) ColumnPatch {
	return ColumnPatch{
		FieldPath:   NormalizeFieldPath(r.FieldPath),
		Ownership:   own,
		Description: r.Payload.Description,
	}
}

func requiredPatches(r RuleRecord, own Ownership) []ColumnPatch {
	fields := r.Payload.Fields
	if len(fields) == 0 {
		fields = []string{r.FieldPath}
	}
	out := make([]ColumnPatch, 0, len(fields))
	for _, f := range fields {
		p := ColumnPatch{
			FieldPath: NormalizeFieldPath(f),
			Ownership: own,
			Required:  tierPtr(r.Severity),
		}
		if len(fields) == 1 {
			p.Description = r.Payload.Description
		}
		out = append(out, p)
	}
	return out
}

func conditionalPatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.Required = tierPtr(r.Severity)
	for _, d := range r.Payload.DependsOn {
		if d = NormalizeFieldPath(d); d != "" {
			p.DependsOn = append(p.DependsOn, d)
		}
	}
	return []ColumnPatch{p}
}

func enumPatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.Format = FormatEnum
	p.EnumVals = dedupe(r.Payload.Values)
	// a closed value set is a column-level requirement, so it carries its tier
	p.Required = tierPtr(r.Severity)
	return []ColumnPatch{p}
}

func formatPatches(r RuleRecord, own Ownership) []ColumnPatch {
	f, elem := MapFormat(r.Payload.PrimaryType, r.Payload.SecondaryType)
	if f == FormatUnspecified {
		return nil
	}
	p := base(r, own)
	p.Format = f
	p.ArrayElement = elem
	return []ColumnPatch{p}
}

func rangePatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.Min = cloneFloat(r.Payload.Min)
	p.Max = cloneFloat(r.Payload.Max)
	return []ColumnPatch{p}
}

func lengthPatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.MinLength = cloneInt(r.Payload.MinLength)
	p.MaxLength = cloneInt(r.Payload.MaxLength)
	return []ColumnPatch{p}
}

func patternPatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.Match = r.Payload.Pattern
	p.RegexMessage = r.Payload.Message
	return []ColumnPatch{p}
}

func multiPatternPatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.DontMatch = dedupe(r.Payload.Patterns)
	p.RegexMessage = r.Payload.Message
	return []ColumnPatch{p}
}

func futurePatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.DateInFuture = r.Payload.InFuture
	return []ColumnPatch{p}
}

func imagePatches(r RuleRecord, own Ownership) []ColumnPatch {
	p := base(r, own)
	p.FieldPath = ImageFieldPath(p.FieldPath, r.Payload.ImageName)
	p.Format = FormatImage
	p.Required = tierPtr(r.Severity)
	p.MinWidth = cloneInt(r.Payload.MinWidth)
	p.MinHeight = cloneInt(r.Payload.MinHeight)
	return []ColumnPatch{p}
}

// ImageFieldPath normalizes an image rule's path to "<array>.<image>".
// Paths already ending in the image name are kept.
func ImageFieldPath(path, imageName string) string {
	path = NormalizeFieldPath(path)
	imageName = strings.TrimSpace(imageName)
	if path == "" {
		path = DefaultImageArray
	}
	if imageName == "" || path == imageName || strings.HasSuffix(path, "."+imageName) {
		return path
	}
	return path + "." + imageName
}

// MapFormat maps a rule source's (primary, secondary) type pair to a Format.
// For arrays the element format is returned as well.
func MapFormat(primary, secondary string) (Format, Format) {
	primary = strings.ToLower(strings.TrimSpace(primary))
	secondary = strings.ToLower(strings.TrimSpace(secondary))

	switch primary {
	case "integer", "int":
		return FormatInteger, FormatUnspecified
	case "number", "decimal", "float", "double":
		return FormatNumber, FormatUnspecified
	case "boolean", "bool":
		return FormatBoolean, FormatUnspecified
	case "date":
		return FormatDate, FormatUnspecified
	case "date-time", "datetime":
		return FormatDateTime, FormatUnspecified
	case "time":
		return FormatTime, FormatUnspecified
	case "array":
		elem, _ := MapFormat(secondary, "")
		if elem == FormatUnspecified || elem == FormatArray {
			elem = FormatString
		}
		return FormatArray, elem
	case "string", "text", "":
		switch secondary {
		case "date":
			return FormatDate, FormatUnspecified
		case "date-time", "datetime":
			return FormatDateTime, FormatUnspecified
		case "time":
			return FormatTime, FormatUnspecified
		case "uri", "url":
			return FormatURI, FormatUnspecified
		case "email":
			return FormatEmail, FormatUnspecified
		}
		if primary == "" {
			return FormatUnspecified, FormatUnspecified
		}
		return FormatString, FormatUnspecified
	}
	return FormatUnspecified, FormatUnspecified
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
