package core

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationModel() *Model {
	price := rule("price", RuleFormat, TierWarn)
	price.Payload.PrimaryType = "integer"
	priceRange := rule("price", RuleRange, TierWarn)
	priceRange.Payload.Max = fptr(500)
	color := rule("color", RuleEnumMatch, TierWarn)
	color.Payload.Values = []string{"Red", "Blue"}
	code := rule("code", RulePatternMatch, TierWarn)
	code.Payload.Pattern = `^[A-Z]{3}$`
	code.Payload.Message = "Code ${value} must be three capitals"
	title := rule("title", RuleLengthRange, TierWarn)
	title.Payload.MaxLength = iptr(5)
	launch := rule("launch", RuleFormat, TierWarn)
	launch.Payload.PrimaryType = "date"
	future := rule("launch", RuleDateInFuture, TierWarn)
	future.Payload.InFuture = true
	email := rule("contact", RuleFormat, TierWarn)
	email.Payload.PrimaryType = "string"
	email.Payload.SecondaryType = "email"
	banned := rule("title", RuleMultiPattern, TierWarn)
	banned.Payload.Patterns = []string{`(?i)free`}
	broken := rule("note", RulePatternMatch, TierWarn)
	broken.Payload.Pattern = `([`

	return NewModel(testScope, Compile([]RuleRecord{
		rule("sku", RuleRequired, TierError),
		price, priceRange, color, code, title, launch, future, email, banned, broken,
	}))
}

func validRecord(m *Model) *CatalogRecord {
	rec := NewCatalogRecord(m.Scope)
	rec.Fields["sku"] = String("A-1")
	rec.Fields["price"] = Number(120)
	rec.Fields["color"] = String("red")
	rec.Fields["code"] = String("ABC")
	rec.Fields["title"] = String("Shoe")
	rec.Fields["launch"] = Date(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	rec.Fields["contact"] = String("ops@example.com")
	rec.Fields["note"] = String("anything")
	return rec
}

func newTestValidator(m *Model) *RecordValidator {
	v := NewRecordValidator(m)
	v.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return v
}

func TestValidateRecord_Valid(t *testing.T) {
	m := validationModel()
	res := newTestValidator(m).ValidateRecord(validRecord(m))
	assert.True(t, res.Valid, res.Errors)
	assert.Nil(t, res.Compliance())
}

func TestValidateRecord_Problems(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   CellValue
		message string
	}{
		{"missing required", "sku", Null(), "required value is missing"},
		{"not a number", "price", Number(math.NaN()), "${value} is not a number"},
		{"fraction in integer", "price", Number(1.5), "${value} must be a whole number"},
		{"below default min", "price", Number(-1), "must be at least 0"},
		{"above max", "price", Number(900), "must be at most 500"},
		{"enum miss", "color", String("green"), "${value} is not one of: Red, Blue"},
		{"pattern miss uses rule message", "code", String("abc"), "Code ${value} must be three capitals"},
		{"too long", "title", String("Sneaker"), "must be at most 5 characters"},
		{"disallowed pattern", "title", String("Free"), "contains a disallowed pattern"},
		{"past date", "launch", Date(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)), "must be a future date"},
		{"bad email", "contact", String("not-an-email"), "${value} is not a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validationModel()
			rec := validRecord(m)
			rec.Fields[tt.field] = tt.value

			res := newTestValidator(m).ValidateRecord(rec)
			require.False(t, res.Valid)
			require.Len(t, res.Errors, 1)
			assert.Equal(t, tt.field, res.Errors[0].Column.FieldPath)
			assert.Equal(t, tt.message, res.Errors[0].Message)

			ce := res.Compliance()
			require.Len(t, ce, 1)
			assert.Equal(t, tt.field, ce[0].FieldPath)
			assert.Equal(t, Core, ce[0].Ownership)
		})
	}
}

func TestValidateRecordFirst(t *testing.T) {
	m := validationModel()
	v := newTestValidator(m)

	assert.NoError(t, v.ValidateRecordFirst(validRecord(m)))

	rec := validRecord(m)
	rec.Fields["color"] = String("green")
	err := v.ValidateRecordFirst(rec)
	require.Error(t, err)
	assert.Equal(t, "color: green is not one of: Red, Blue", err.Error())
}

func TestValidationError_RendersIntoCell(t *testing.T) {
	m := validationModel()
	rec := validRecord(m)
	rec.Fields["color"] = String("green")
	rec.Compliance = newTestValidator(m).ValidateRecord(rec).Compliance()

	g := Render(m, []*CatalogRecord{rec})
	var found bool
	for i, h := range g.Headers {
		if h.Column.FieldPath != "color" {
			continue
		}
		cell := g.Rows[0].Cells[i]
		assert.True(t, cell.Highlight)
		assert.True(t, strings.HasPrefix(cell.Notes[0], "green is not one of"))
		found = true
	}
	assert.True(t, found)
}
