package core

import (
	"fmt"
	"strings"
)

// Format is the cell format a column validates and coerces against.
type Format string

const (
	FormatUnspecified Format = ""
	FormatString      Format = "string"
	FormatEnum        Format = "enum"
	FormatEmail       Format = "email"
	FormatURI         Format = "uri"
	FormatImage       Format = "image"
	FormatNumber      Format = "number"
	FormatInteger     Format = "integer"
	FormatBoolean     Format = "boolean"
	FormatArray       Format = "array"
	FormatDate        Format = "date"
	FormatDateTime    Format = "date-time"
	FormatTime        Format = "time"
)

// IsNumeric reports whether values of this format are numbers.
func (f Format) IsNumeric() bool {
	return f == FormatNumber || f == FormatInteger
}

// IsTextual reports whether values of this format are rendered as literal text.
func (f Format) IsTextual() bool {
	switch f {
	case FormatString, FormatEnum, FormatEmail, FormatURI, FormatImage, FormatTime, FormatArray:
		return true
	}
	return false
}

// Tier is the severity classification of a column. Lower values are more
// restrictive; the zero value is TierError.
type Tier int

const (
	TierError Tier = iota // required
	TierWarn              // recommended
	TierInfo              // optional
	TierNone
)

// Tiers lists every tier in rendering order.
var Tiers = []Tier{TierError, TierWarn, TierInfo, TierNone}

func (t Tier) String() string {
	switch t {
	case TierError:
		return "error"
	case TierWarn:
		return "warn"
	case TierInfo:
		return "info"
	default:
		return "none"
	}
}

// Label returns the header label shown to spreadsheet users.
func (t Tier) Label() string {
	switch t {
	case TierError:
		return "Required"
	case TierWarn:
		return "Recommended"
	case TierInfo:
		return "Optional"
	default:
		return ""
	}
}

// ParseTier converts a severity name to a Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "required":
		return TierError, nil
	case "warn", "warning", "recommended":
		return TierWarn, nil
	case "info", "optional":
		return TierInfo, nil
	case "none", "":
		return TierNone, nil
	}
	return TierNone, fmt.Errorf("unknown severity %q", s)
}

// MostRestrictive returns the stricter of two tiers.
func MostRestrictive(a, b Tier) Tier {
	if a < b {
		return a
	}
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Ownership tells whether a column belongs to the platform-defined attribute
// set or to a retailer-specific extension.
type Ownership int

const (
	Core Ownership = iota
	Extended
)

func (o Ownership) String() string {
	if o == Extended {
		return "extended"
	}
	return "core"
}

// MarshalText implements encoding.TextMarshaler.
func (o Ownership) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Ownership) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "core", "":
		*o = Core
	case "extended", "custom":
		*o = Extended
	default:
		return fmt.Errorf("unknown ownership %q", b)
	}
	return nil
}

// Validation holds everything the rules said about one column.
type Validation struct {
	Format           Format   `json:"format,omitempty"`
	Required         Tier     `json:"required"`
	EnumVals         []string `json:"enumVals,omitempty"`
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	MinLength        *int     `json:"minLength,omitempty"`
	MaxLength        *int     `json:"maxLength,omitempty"`
	Match            string   `json:"match,omitempty"`
	DontMatch        []string `json:"dontMatch,omitempty"`
	RegexMessage     string   `json:"regexMessage,omitempty"`
	ArrayElementType Format   `json:"arrayElementType,omitempty"`
	DateInFuture     bool     `json:"dateInFuture,omitempty"`
	MinWidth         *int     `json:"minWidth,omitempty"`
	MinHeight        *int     `json:"minHeight,omitempty"`
	DependsOn        []string `json:"dependsOn,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// Column is the schema unit for one logical attribute.
type Column struct {
	FieldPath   string     `json:"fieldPath"`
	DisplayName string     `json:"displayName"`
	Ownership   Ownership  `json:"ownership"`
	Validation  Validation `json:"validation"`
}

const (
	// extendedSavePrefix keeps extended save names apart from core ones.
	extendedSavePrefix = "custom:"

	// CoreCollisionPrefix marks a core column whose field path also exists
	// as an extended attribute.
	CoreCollisionPrefix = "core:"
)

// SaveName returns the stable internal key of the column.
func (c Column) SaveName() string {
	if c.Ownership == Extended {
		return extendedSavePrefix + c.FieldPath
	}
	return c.FieldPath
}

// Tier returns the severity tier of the column.
func (c Column) Tier() Tier {
	return c.Validation.Required
}

// IsImage reports whether the column writes into an image slot.
func (c Column) IsImage() bool {
	return c.Validation.Format == FormatImage
}

// ImageSlot splits an image column's field path into the backing array name
// and the image name. "images.front_image" yields ("images", "front_image").
func (c Column) ImageSlot() (array, name string) {
	return SplitImagePath(c.FieldPath)
}

// SplitImagePath splits a dotted image path at its last separator.
func SplitImagePath(path string) (array, name string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return DefaultImageArray, path
	}
	return path[:i], path[i+1:]
}

// NormalizeFieldPath converts slash-separated paths to the dotted form and
// drops empty segments.
func NormalizeFieldPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '.' || r == '/' })
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ".")
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	out := c
	v := &out.Validation
	v.EnumVals = cloneStrings(v.EnumVals)
	v.DontMatch = cloneStrings(v.DontMatch)
	v.DependsOn = cloneStrings(v.DependsOn)
	v.Min = cloneFloat(v.Min)
	v.Max = cloneFloat(v.Max)
	v.MinLength = cloneInt(v.MinLength)
	v.MaxLength = cloneInt(v.MaxLength)
	v.MinWidth = cloneInt(v.MinWidth)
	v.MinHeight = cloneInt(v.MinHeight)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
