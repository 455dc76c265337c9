package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }

func rule(path string, kind RuleKind, sev Tier) RuleRecord {
	return RuleRecord{FieldPath: path, Type: kind, Severity: sev}
}

func byPath(cols []Column) map[string]Column {
	out := make(map[string]Column, len(cols))
	for _, c := range cols {
		out[c.SaveName()] = c
	}
	return out
}

func TestCompile_OrderAndIdentifierFirst(t *testing.T) {
	cols := Compile([]RuleRecord{
		rule("title", RuleRequired, TierError),
		rule("brand", RuleRequired, TierWarn),
		rule("sku", RuleRequired, TierError),
		rule("title", RuleRequired, TierError),
	})
	require.Len(t, cols, 3)
	assert.Equal(t, []string{"sku", "title", "brand"}, []string{cols[0].FieldPath, cols[1].FieldPath, cols[2].FieldPath})
}

func TestCompile_MostRestrictiveTierWins(t *testing.T) {
	cols := byPath(Compile([]RuleRecord{
		rule("brand", RuleRequired, TierInfo),
		rule("brand", RuleCatalogRequired, TierError),
		rule("brand", RuleRequired, TierWarn),
	}))
	assert.Equal(t, TierError, cols["brand"].Tier())
}

func TestCompile_DefaultTiers(t *testing.T) {
	format := rule("color", RuleFormat, TierError)
	format.Payload.PrimaryType = "string"
	custom := rule("fit", RuleFormat, TierError)
	custom.AttrType = AttrCustom
	custom.Payload.PrimaryType = "string"

	cols := byPath(Compile([]RuleRecord{format, custom}))
	assert.Equal(t, TierNone, cols["color"].Tier(), "core columns without a required rule have no tier")
	assert.Equal(t, TierInfo, cols["custom:fit"].Tier(), "extended columns default to info")
}

func TestCompile_EnumIsNotWidenedToString(t *testing.T) {
	enum := rule("color", RuleEnumMatch, TierError)
	enum.Payload.Values = []string{"red", "blue", " red ", ""}
	format := rule("color", RuleFormat, TierError)
	format.Payload.PrimaryType = "string"

	cols := byPath(Compile([]RuleRecord{enum, format}))
	assert.Equal(t, FormatEnum, cols["color"].Validation.Format)
	assert.Equal(t, []string{"red", "blue"}, cols["color"].Validation.EnumVals)
}

func TestCompile_NumericFormatDefaultsMinToZero(t *testing.T) {
	format := rule("price", RuleFormat, TierError)
	format.Payload.PrimaryType = "number"
	cols := byPath(Compile([]RuleRecord{format}))
	require.NotNil(t, cols["price"].Validation.Min)
	assert.Equal(t, 0.0, *cols["price"].Validation.Min)

	// an explicit range before the format keeps its minimum
	rng := rule("weight", RuleRange, TierError)
	rng.Payload.Min = fptr(-5)
	wformat := rule("weight", RuleFormat, TierError)
	wformat.Payload.PrimaryType = "integer"
	cols = byPath(Compile([]RuleRecord{rng, wformat}))
	assert.Equal(t, -5.0, *cols["weight"].Validation.Min)
	assert.Equal(t, FormatInteger, cols["weight"].Validation.Format)
}

func TestCompile_InformationalConstraintsDropped(t *testing.T) {
	rng := rule("price", RuleRange, TierInfo)
	rng.Payload.Max = fptr(10)
	length := rule("title", RuleLengthRange, TierWarn)
	length.Payload.MaxLength = iptr(80)

	cols := byPath(Compile([]RuleRecord{rng, length}))
	assert.NotContains(t, cols, "price")
	assert.Equal(t, 80, *cols["title"].Validation.MaxLength)
}

func TestCompile_ExcludedPaths(t *testing.T) {
	var rules []RuleRecord
	for _, p := range []string{"id", "created_at", "_secret", "internal.flag", "variants.0.sku", "tags[1]", "warehouses.qty", "compliance", "title"} {
		rules = append(rules, rule(p, RuleRequired, TierError))
	}
	cols := Compile(rules)
	require.Len(t, cols, 1)
	assert.Equal(t, "title", cols[0].FieldPath)
}

func TestIsExcluded_ImagesAllowed(t *testing.T) {
	assert.False(t, IsExcluded("images.front"))
	assert.False(t, IsExcluded("variant.images.side"))
	assert.True(t, IsExcluded("images"))
	assert.True(t, IsExcluded(""))
}

func TestCompile_OwnershipCollision(t *testing.T) {
	coreRule := rule("material", RuleRequired, TierError)
	ext := rule("material", RuleRequired, TierWarn)
	ext.AttrType = AttrCustom

	cols := Compile([]RuleRecord{coreRule, ext})
	require.Len(t, cols, 2)
	m := byPath(cols)
	assert.Equal(t, CoreCollisionPrefix+"material", m["material"].DisplayName)
	assert.Equal(t, "material", m["custom:material"].DisplayName)
	assert.Equal(t, Extended, m["custom:material"].Ownership)
}

func TestCompile_ConditionalRequiredOwnership(t *testing.T) {
	reserved := rule("dimensions/height", RuleConditionalRequired, TierWarn)
	reserved.Payload.DependsOn = []string{"dimensions/width", ""}
	other := rule("fabric", RuleConditionalRequired, TierWarn)

	m := byPath(Compile([]RuleRecord{reserved, other}))
	require.Contains(t, m, "dimensions.height")
	assert.Equal(t, Core, m["dimensions.height"].Ownership)
	assert.Equal(t, []string{"dimensions.width"}, m["dimensions.height"].Validation.DependsOn)
	assert.Contains(t, m, "custom:fabric")
}

func TestCompile_ImageRules(t *testing.T) {
	img := rule("images", RuleImage, TierWarn)
	img.Payload.ImageName = "front"
	img.Payload.MinWidth = iptr(800)
	side := rule("images.side", RuleCatalogImage, TierError)
	side.Payload.ImageName = "side"

	m := byPath(Compile([]RuleRecord{img, side}))
	front := m["images.front"]
	assert.True(t, front.IsImage())
	assert.Equal(t, TierWarn, front.Tier())
	assert.Equal(t, 800, *front.Validation.MinWidth)
	assert.Contains(t, m, "images.side")
}

func TestCompile_RequiredFieldsList(t *testing.T) {
	r := rule("", RuleRequired, TierWarn)
	r.Payload.Fields = []string{"a", "b"}
	r.Payload.Description = "ignored for multi-field rules"
	cols := Compile([]RuleRecord{r})
	require.Len(t, cols, 2)
	assert.Empty(t, cols[0].Validation.Description)
}

func TestCompile_PatternsAccumulate(t *testing.T) {
	p1 := rule("title", RulePatternMatch, TierError)
	p1.Payload.Pattern = "^[A-Z]"
	p1.Payload.Message = "Start with a capital"
	p2 := rule("title", RuleMultiPattern, TierError)
	p2.Payload.Patterns = []string{"foo", "bar", "foo"}

	v := byPath(Compile([]RuleRecord{p1, p2}))["title"].Validation
	assert.Equal(t, "^[A-Z]", v.Match)
	assert.Equal(t, []string{"foo", "bar"}, v.DontMatch)
}

func TestCompile_ReturnsIndependentCopies(t *testing.T) {
	enum := rule("color", RuleEnumMatch, TierError)
	enum.Payload.Values = []string{"red"}
	rules := []RuleRecord{enum}
	cols := Compile(rules)
	cols[0].Validation.EnumVals[0] = "changed"
	assert.Equal(t, "red", Compile(rules)[0].Validation.EnumVals[0])
	assert.Equal(t, "red", rules[0].Payload.Values[0])
}

func TestMapFormat(t *testing.T) {
	tests := []struct {
		primary, secondary string
		want, elem         Format
	}{
		{"integer", "", FormatInteger, FormatUnspecified},
		{"Decimal", "", FormatNumber, FormatUnspecified},
		{"bool", "", FormatBoolean, FormatUnspecified},
		{"date", "", FormatDate, FormatUnspecified},
		{"string", "date-time", FormatDateTime, FormatUnspecified},
		{"string", "url", FormatURI, FormatUnspecified},
		{"string", "email", FormatEmail, FormatUnspecified},
		{"string", "", FormatString, FormatUnspecified},
		{"", "date", FormatDate, FormatUnspecified},
		{"", "", FormatUnspecified, FormatUnspecified},
		{"array", "number", FormatArray, FormatNumber},
		{"array", "", FormatArray, FormatString},
		{"array", "array", FormatArray, FormatString},
		{"blob", "", FormatUnspecified, FormatUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.primary+"/"+tt.secondary, func(t *testing.T) {
			got, elem := MapFormat(tt.primary, tt.secondary)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.elem, elem)
		})
	}
}

func TestParseRuleKind(t *testing.T) {
	k, err := ParseRuleKind(" Enum_Match ")
	require.NoError(t, err)
	assert.Equal(t, RuleEnumMatch, k)

	_, err = ParseRuleKind("spellcheck")
	assert.ErrorIs(t, err, ErrUnknownRuleKind)
}

func TestImageFieldPath(t *testing.T) {
	assert.Equal(t, "images.front", ImageFieldPath("images", "front"))
	assert.Equal(t, "images.front", ImageFieldPath("images.front", "front"))
	assert.Equal(t, DefaultImageArray+".back", ImageFieldPath("", "back"))
}

func TestNormalizeFieldPath(t *testing.T) {
	assert.Equal(t, "a.b.c", NormalizeFieldPath(" a/b//c. "))
	assert.Equal(t, "", NormalizeFieldPath("  "))
}

func TestCompile_SkuAndColorScenario(t *testing.T) {
	color := rule("color", RuleEnumMatch, TierWarn)
	color.Payload.Values = []string{"Red", "Blue"}

	m := NewModel(testScope, Compile([]RuleRecord{
		rule("sku", RuleRequired, TierError),
		color,
	}))
	require.Equal(t, 2, m.Len())

	errs := m.Tier(TierError)
	require.Len(t, errs, 1)
	assert.Equal(t, "sku", errs[0].FieldPath)

	warns := m.Tier(TierWarn)
	require.Len(t, warns, 1)
	assert.Equal(t, "color", warns[0].FieldPath)
	assert.ElementsMatch(t, []string{"Red", "Blue"}, warns[0].Validation.EnumVals)
}

func TestCompile_CollisionNamesRoundTrip(t *testing.T) {
	custom := rule("material", RuleRequired, TierWarn)
	custom.AttrType = AttrCustom

	m := NewModel(testScope, Compile([]RuleRecord{
		rule("material", RuleRequired, TierError),
		custom,
	}))

	coreCol, ok := m.BySaveName("material")
	require.True(t, ok)
	extCol, ok := m.BySaveName("custom:material")
	require.True(t, ok)
	assert.NotEqual(t, coreCol.DisplayName, extCol.DisplayName)

	got, ok := m.ByDisplayName(coreCol.DisplayName)
	require.True(t, ok)
	assert.Equal(t, Core, got.Ownership)
	got, ok = m.ByDisplayName(extCol.DisplayName)
	require.True(t, ok)
	assert.Equal(t, Extended, got.Ownership)
}

func TestCompile_CaseDifferingCollision(t *testing.T) {
	custom := rule("color", RuleRequired, TierWarn)
	custom.AttrType = AttrCustom

	cols := Compile([]RuleRecord{rule("Color", RuleRequired, TierError), custom})
	m := byPath(cols)
	assert.Equal(t, CoreCollisionPrefix+"Color", m["Color"].DisplayName)
	assert.Equal(t, "color", m["custom:color"].DisplayName)

	var model *Model
	require.NotPanics(t, func() { model = NewModel(testScope, cols) })
	got, ok := model.ByDisplayName("COLOR")
	require.True(t, ok)
	assert.Equal(t, Extended, got.Ownership)
}

func TestCompile_CaseDifferingPathsInOneNamespace(t *testing.T) {
	cols := Compile([]RuleRecord{
		rule("Color", RuleRequired, TierError),
		rule("color", RuleRequired, TierWarn),
	})
	m := byPath(cols)
	assert.Equal(t, "Color", m["Color"].DisplayName)
	assert.Equal(t, "color (2)", m["color"].DisplayName)
	assert.NotPanics(t, func() { NewModel(testScope, cols) })
}
