// Package core provides the business logic for catalog spreadsheet operations.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// # Rule Errors (RULE001-RULE099)
//
//	RULE001 - Rule source unavailable: attribute rules could not be loaded
//	          Action: Please try again in a few moments
//	          Patterns: "rule source"
//
//	RULE002 - Unknown rule type: a rule used a type this service does not support
//	          Action: Contact support with the category you were working on
//	          Patterns: "unknown rule kind"
//
// # Catalog Errors (CAT001-CAT099)
//
//	CAT001 - Catalog unavailable: existing catalog records could not be loaded
//	         Action: Please try again in a few moments
//	         Patterns: "catalog source"
//
//	CAT002 - Warehouses unavailable: the supplier warehouse directory could not be loaded
//	         Action: Please try again in a few moments
//	         Patterns: "warehouse source"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large", "request body too large"
//
//	FILE002 - Unsupported file: File is neither CSV nor XLSX
//	          Action: Upload the template as .xlsx or .csv
//	          Patterns: "unsupported file"
//
//	FILE003 - No header: The file has no header row
//	          Action: Keep the first row of the template unchanged
//	          Patterns: "no header row"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Unreadable file: The file could not be parsed
//	          Action: Re-download the template and copy your data into it
//	          Patterns: "zip:", "parse error"
//
// # Parse Errors (PARSE001-PARSE099)
//
//	PARSE001 - System busy: Too many sheets are being processed
//	           Action: Please wait a moment and try again
//	           Patterns: "too many concurrent parses"
//
//	PARSE002 - Request cancelled: Request was cancelled
//	           Action: Please try again
//	           Patterns: "context canceled"
//
//	PARSE003 - Request timeout: Request timed out
//	           Action: Try a smaller file or check your connection
//	           Patterns: "context deadline exceeded"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// Patterns are matched case-insensitively using strings.Contains and the first
// match wins, so more specific patterns come first.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers wrap them with context using %w.
var (
	ErrRuleSource      = errors.New("rule source failed")
	ErrCatalogSource   = errors.New("catalog source failed")
	ErrWarehouseSource = errors.New("warehouse source failed")
	ErrUnknownRuleKind = errors.New("unknown rule kind")
	ErrNoHeader        = errors.New("no header row")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Rule Errors (RULE001-RULE002)
	// =========================================================================
	{
		pattern: "unknown rule kind",
		msg: UserMessage{
			Message: "A rule used a type this service does not support",
			Action:  "Contact support with the category you were working on",
			Code:    "RULE002",
		},
	},
	{
		pattern: "rule source",
		msg: UserMessage{
			Message: "Attribute rules could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "RULE001",
		},
	},

	// =========================================================================
	// Catalog Errors (CAT001-CAT002)
	// =========================================================================
	{
		pattern: "catalog source",
		msg: UserMessage{
			Message: "Existing catalog records could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "CAT001",
		},
	},
	{
		pattern: "warehouse source",
		msg: UserMessage{
			Message: "The warehouse directory could not be loaded",
			Action:  "Please try again in a few moments",
			Code:    "CAT002",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file",
		msg: UserMessage{
			Message: "File is neither CSV nor XLSX",
			Action:  "Upload the template as .xlsx or .csv",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no header row",
		msg: UserMessage{
			Message: "The file has no header row",
			Action:  "Keep the first row of the template unchanged",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "zip:",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Re-download the template and copy your data into it",
			Code:    "FILE005",
		},
	},
	{
		pattern: "parse error",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Re-download the template and copy your data into it",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Parse Errors (PARSE001-PARSE003)
	// =========================================================================
	{
		pattern: "too many concurrent parses",
		msg: UserMessage{
			Message: "Too many sheets are being processed",
			Action:  "Please wait a moment and try again",
			Code:    "PARSE001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "PARSE002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "PARSE003",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error into a user-friendly message.
// Returns the default message for nil or unrecognized errors.
func MapError(err error) UserMessage {
	if err == nil {
		return defaultMessage
	}

	errLower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errLower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders a user message as a single line with its code.
func FormatUserError(msg UserMessage) string {
	if msg.Action == "" {
		return fmt.Sprintf("%s [%s]", msg.Message, msg.Code)
	}
	return fmt.Sprintf("%s. %s [%s]", msg.Message, msg.Action, msg.Code)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps a technical error to a UserError. The original error
// stays reachable through Unwrap. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
