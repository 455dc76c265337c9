package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "debug", "json")
	return &buf
}

func testRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Logger)
	r.Post("/api/{supplier}/{retailer}/{category}/parse", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("parsed"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return r
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLogger_ScopedRoute(t *testing.T) {
	buf := captureLogs(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sup-1/ret-1/shoes/parse", strings.NewReader("sku\nA-1\n"))
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entry := lastEntry(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "sup-1/ret-1/shoes", entry["scope"])
	assert.Equal(t, "/api/{supplier}/{retailer}/{category}/parse", entry["route"])
	assert.EqualValues(t, 6, entry["response_bytes"])
	assert.EqualValues(t, 8, entry["upload_bytes"])
	assert.NotContains(t, entry, "ip")
}

func TestLogger_UnscopedServerError(t *testing.T) {
	buf := captureLogs(t)

	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	entry := lastEntry(t, buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "/healthz", entry["route"])
	assert.NotContains(t, entry, "scope")
	assert.NotContains(t, entry, "upload_bytes")
	assert.EqualValues(t, 503, entry["status"])
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, levelFor(http.StatusCreated))
	assert.Equal(t, slog.LevelWarn, levelFor(http.StatusNotFound))
	assert.Equal(t, slog.LevelError, levelFor(http.StatusInternalServerError))
}
