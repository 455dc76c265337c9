package core

// validation.go checks reconciled records against their columns' validation.
//
// Validation happens at two levels:
//  1. Presence: required (error tier) columns must carry a value
//  2. Value: each present value is checked against its column's format,
//     enum list, numeric bounds, length bounds and patterns
//
// Coercion never rejects input, so this is where malformed cells surface.
// The RecordValidator can return all problems (attached to records as
// compliance entries for rendering) or just the first one. Messages may carry
// the ${value} token, which the renderer replaces with the cell text.

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a single validation problem for a column.
type ValidationError struct {
	Column  Column // Column the problem belongs to
	Value   string // The offending value, if any
	Message string // Human-readable message
}

func (e ValidationError) Error() string {
	msg := strings.ReplaceAll(e.Message, "${value}", e.Value)
	if e.Column.DisplayName != "" {
		return fmt.Sprintf("%s: %s", e.Column.DisplayName, msg)
	}
	return msg
}

// Compliance converts the problem into a field-attributed compliance entry.
func (e ValidationError) Compliance() ComplianceError {
	return ComplianceError{
		FieldPath: e.Column.FieldPath,
		Ownership: e.Column.Ownership,
		Severity:  e.Column.Tier(),
		Message:   e.Message,
	}
}

// ValidationResult contains the result of validating a record.
type ValidationResult struct {
	Valid  bool              // True if all checks passed
	Errors []ValidationError // List of problems (empty if Valid)
}

// Compliance returns every problem as a compliance entry.
func (r ValidationResult) Compliance() []ComplianceError {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make([]ComplianceError, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Compliance()
	}
	return out
}

// RecordValidator validates records against a model's columns. Patterns are
// compiled once; a validator is safe for concurrent use.
type RecordValidator struct {
	columns   []Column
	match     map[string]*regexp.Regexp
	dontMatch map[string][]*regexp.Regexp
	now       func() time.Time
}

// NewRecordValidator prepares a validator for model. Invalid patterns are
// skipped; they come from an external rule source and must not block parsing.
func NewRecordValidator(model *Model) *RecordValidator {
	v := &RecordValidator{
		columns:   model.Columns(),
		match:     make(map[string]*regexp.Regexp),
		dontMatch: make(map[string][]*regexp.Regexp),
		now:       time.Now,
	}
	for _, c := range v.columns {
		if c.Validation.Match != "" {
			if re, err := regexp.Compile(c.Validation.Match); err == nil {
				v.match[c.SaveName()] = re
			}
		}
		for _, p := range c.Validation.DontMatch {
			if re, err := regexp.Compile(p); err == nil {
				v.dontMatch[c.SaveName()] = append(v.dontMatch[c.SaveName()], re)
			}
		}
	}
	return v
}

// ValidateRecord checks every column and returns all problems.
// This is what gets attached to parsed records for rendering.
func (v *RecordValidator) ValidateRecord(rec *CatalogRecord) ValidationResult {
	result := ValidationResult{Valid: true}
	for _, col := range v.columns {
		if err := v.check(col, rec.Value(col)); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *err)
		}
	}
	return result
}

// ValidateRecordFirst returns the first problem only.
func (v *RecordValidator) ValidateRecordFirst(rec *CatalogRecord) error {
	for _, col := range v.columns {
		if err := v.check(col, rec.Value(col)); err != nil {
			return *err
		}
	}
	return nil
}

func (v *RecordValidator) check(col Column, val CellValue) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Column: col, Value: val.Text(), Message: msg}
	}

	if val.IsBlank() {
		if col.Tier() == TierError {
			return fail("required value is missing")
		}
		return nil
	}

	if msg := checkCell(val, col.Validation, v.now()); msg != "" {
		return fail(msg)
	}

	text := val.Text()
	if re, ok := v.match[col.SaveName()]; ok && !re.MatchString(text) {
		return fail(patternMessage(col.Validation, "does not match the expected pattern"))
	}
	for _, re := range v.dontMatch[col.SaveName()] {
		if re.MatchString(text) {
			return fail(patternMessage(col.Validation, "contains a disallowed pattern"))
		}
	}
	return nil
}

// checkCell validates one typed value against a column's format and bounds.
// It returns "" when the value is acceptable.
func checkCell(val CellValue, cv Validation, now time.Time) string {
	switch cv.Format {
	case FormatNumber, FormatInteger:
		n := ToNumber(val)
		if math.IsNaN(n) {
			return "${value} is not a number"
		}
		if cv.Format == FormatInteger && n != math.Trunc(n) {
			return "${value} must be a whole number"
		}
		if cv.Min != nil && n < *cv.Min {
			return fmt.Sprintf("must be at least %s", formatNumber(*cv.Min))
		}
		if cv.Max != nil && n > *cv.Max {
			return fmt.Sprintf("must be at most %s", formatNumber(*cv.Max))
		}

	case FormatEnum:
		text := val.Text()
		for _, ev := range cv.EnumVals {
			if strings.EqualFold(ev, text) {
				return ""
			}
		}
		if len(cv.EnumVals) > 0 {
			return "${value} is not one of: " + strings.Join(cv.EnumVals, ", ")
		}

	case FormatEmail:
		if _, err := mail.ParseAddress(val.Text()); err != nil {
			return "${value} is not a valid email address"
		}

	case FormatURI, FormatImage:
		u, err := url.Parse(val.Text())
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "${value} is not a valid URL"
		}

	case FormatDate, FormatDateTime:
		t, ok := val.Time()
		if !ok {
			return "${value} is not a valid date"
		}
		if cv.DateInFuture && !t.After(now) {
			return "must be a future date"
		}
	}

	if cv.MinLength != nil || cv.MaxLength != nil {
		n := len([]rune(val.Text()))
		if cv.MinLength != nil && n < *cv.MinLength {
			return fmt.Sprintf("must be at least %d characters", *cv.MinLength)
		}
		if cv.MaxLength != nil && n > *cv.MaxLength {
			return fmt.Sprintf("must be at most %d characters", *cv.MaxLength)
		}
	}
	return ""
}

func patternMessage(cv Validation, fallback string) string {
	if cv.RegexMessage != "" {
		return cv.RegexMessage
	}
	return fallback
}
