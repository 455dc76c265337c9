package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalogsheet/internal/core"
	"github.com/JonMunkholm/catalogsheet/internal/flatfile"
	"github.com/JonMunkholm/catalogsheet/internal/logging"
	"github.com/JonMunkholm/catalogsheet/internal/xlsxgrid"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipart memory kept before spilling to disk
const maxMemory = 10 << 20

func requestIDFrom(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}

// scopeFrom reads the supplier/retailer/category path parameters.
func scopeFrom(r *http.Request) core.Scope {
	return core.Scope{
		SupplierID: chi.URLParam(r, "supplier"),
		RetailerID: chi.URLParam(r, "retailer"),
		CategoryID: chi.URLParam(r, "category"),
	}
}

// skusFrom reads ?sku=a,b&sku=c into a deduplicated list in request order.
func skusFrom(r *http.Request) []string {
	var skus []string
	seen := make(map[string]bool)
	for _, v := range r.URL.Query()["sku"] {
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			skus = append(skus, s)
		}
	}
	return skus
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"parses": s.service.LimiterStatus(),
	})
}

// SchemaResponse lists the compiled columns of a scope.
type SchemaResponse struct {
	Scope   core.Scope    `json:"scope"`
	Columns []core.Column `json:"columns"`
	Bands   []core.Band   `json:"bands"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	grid, model, err := s.service.RenderSheet(r.Context(), scope, nil)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SchemaResponse{
		Scope:   scope,
		Columns: model.Columns(),
		Bands:   grid.Bands,
	})
}

// handleTemplate streams an xlsx workbook. With ?sku= the listed catalog
// records are rendered as a live sheet, otherwise an empty template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	skus := skusFrom(r)
	if limit := s.cfg.Render.MaxSKUs; limit > 0 && len(skus) > limit {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     "too many skus",
			Message:   fmt.Sprintf("At most %d SKUs can be exported at once.", limit),
			Action:    "Split the export into smaller batches.",
			Code:      "REQ001",
			RequestID: requestIDFrom(r),
		})
		return
	}

	grid, _, err := s.service.RenderSheet(r.Context(), scope, skus)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Buffer so a write failure can still produce an error response.
	var buf bytes.Buffer
	if err := xlsxgrid.Write(&buf, grid, xlsxgrid.Options{ValidationRows: s.service.ValidationRows()}); err != nil {
		s.respondError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.xlsx", scope.SupplierID, scope.RetailerID, scope.CategoryID)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Error("write template", "error", err)
	}
}

// ParseResponse is the JSON body of a parse.
type ParseResponse struct {
	*core.ParseResult
	Saved int `json:"saved"`
}

// handleParse accepts a multipart "file" upload (.csv or .xlsx) and returns
// one result per modified row. With ?commit=true the records are saved.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Parse.MaxFileSize)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errNoFile, err))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Parse.Timeout)
	defer cancel()

	src, closeSrc, err := s.openSource(file, header.Filename, header.Size)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer closeSrc()

	scope := scopeFrom(r)
	result, err := s.service.ParseSheet(ctx, scope, src)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := ParseResponse{ParseResult: result}
	if r.URL.Query().Get("commit") == "true" {
		saved, err := s.service.SaveResults(ctx, result.Results)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		resp.Saved = saved
		logging.WithScope(ctx, scope.Key()).Info("parse committed", "saved", saved, "file", header.Filename)
	}
	writeJSON(w, http.StatusOK, resp)
}

// fileReader is what a multipart upload provides.
type fileReader interface {
	io.Reader
	io.ReaderAt
}

// openSource picks the row source by file extension.
func (s *Server) openSource(f fileReader, name string, size int64) (core.RowSource, func(), error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return flatfile.NewSource(f, s.cfg.Parse.MaxFileSize), func() {}, nil
	case ".tsv":
		return flatfile.NewSource(f, s.cfg.Parse.MaxFileSize, flatfile.WithDelimiter('\t')), func() {}, nil
	case ".xlsx":
		src, err := xlsxgrid.Open(f, size)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFile, filepath.Ext(name))
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	scope := scopeFrom(r)
	grid, _, err := s.service.RenderSheet(r.Context(), scope, skusFrom(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := PreviewPage(scope, grid).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview", "error", err)
	}
}
