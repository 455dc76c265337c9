// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

// Logger logs one line per request once the handler has finished.
//
// Routes under /{supplier}/{retailer}/{category} are logged with their scope
// key, so a parse or template request can be traced next to the core's own
// scope-tagged lines. Server errors log at error level and client errors at
// warn.
//
// Log fields:
//   - method, route (the matched chi pattern), status
//   - scope: supplier/retailer/category, when the route has one
//   - upload_bytes: request body size for sheet uploads
//   - response_bytes, duration_ms
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		route, scope := routeInfo(r)
		var logger *slog.Logger
		if scope != "" {
			logger = logging.WithScope(r.Context(), scope)
		} else {
			logger = logging.FromContext(r.Context())
		}

		args := []any{
			"method", r.Method,
			"route", route,
			"status", ww.status,
			"response_bytes", ww.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if r.Method == http.MethodPost && r.ContentLength > 0 {
			args = append(args, "upload_bytes", r.ContentLength)
		}
		logger.Log(r.Context(), levelFor(ww.status), "request", args...)
	})
}

// routeInfo reads the matched pattern and scope key. Chi fills the route
// context while routing, so this is only meaningful after the handler ran.
func routeInfo(r *http.Request) (route, scope string) {
	route = r.URL.Path
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return route, ""
	}
	if p := rctx.RoutePattern(); p != "" {
		route = p
	}
	supplier := rctx.URLParam("supplier")
	retailer := rctx.URLParam("retailer")
	category := rctx.URLParam("category")
	if supplier == "" && retailer == "" && category == "" {
		return route, ""
	}
	return route, supplier + "/" + retailer + "/" + category
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// responseWriter records the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
