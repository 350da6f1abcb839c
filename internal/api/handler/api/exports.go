package api

import (
	"context"
	"net/http"

	"github.com/newthinker/cryptostream/internal/api/response"
	"github.com/newthinker/cryptostream/internal/export"
	"go.uber.org/zap"
)

// ExportArchive defines the interface needed to browse archived exports.
type ExportArchive interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, path string) (*export.Result, error)
	Delete(ctx context.Context, path string) error
}

// ExportsHandler lists, downloads and deletes archived exports.
type ExportsHandler struct {
	archive ExportArchive
	logger  *zap.Logger
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(archive ExportArchive, logger *zap.Logger) *ExportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportsHandler{archive: archive, logger: logger}
}

// List returns archived export paths as a JSON array.
// Query: format=csv|json (optional).
func (h *ExportsHandler) List(w http.ResponseWriter, r *http.Request) {
	paths, err := h.archive.List(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	response.JSON(w, http.StatusOK, paths)
}

// Get downloads one archived export.
func (h *ExportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.archive.Open(r.Context(), r.PathValue("path"))
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	writeExport(w, res)
}

// Delete removes one archived export.
func (h *ExportsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.archive.Delete(r.Context(), r.PathValue("path")); err != nil {
		h.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExportsHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("export archive request failed", zap.String("op", op), zap.Error(err))
	}
	response.Error(w, status, err)
}
