package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with full technical details and the request ID (server-side)
//   - mapped via core.MapError to a coded, user-friendly message
//   - answered as JSON for API routes and plain text elsewhere

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catalogsheet/internal/core"
	"github.com/JonMunkholm/catalogsheet/internal/flatfile"
	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

var errNoFile = errors.New("no file provided")

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrTooManyParses):
		return http.StatusServiceUnavailable
	case errors.As(err, &maxBytes), errors.Is(err, flatfile.ErrTooLarge),
		// multipart does not always wrap the MaxBytesReader error
		strings.Contains(err.Error(), "request body too large"):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoHeader), errors.Is(err, core.ErrUnsupportedFile), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrRuleSource), errors.Is(err, core.ErrCatalogSource), errors.Is(err, core.ErrWarehouseSource):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	requestID := requestIDFrom(r)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:     userMsg.Message,
			Message:   userMsg.Message,
			Action:    userMsg.Action,
			Code:      userMsg.Code,
			RequestID: requestID,
		})
		return
	}
	http.Error(w, core.FormatUserError(userMsg), status)
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
