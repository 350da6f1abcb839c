package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	files     map[string][]byte
	gotPrefix string
	listErr   error
}

func (f *fakeArchive) List(ctx context.Context, prefix string) ([]string, error) {
	f.gotPrefix = prefix
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []string{}
	for p := range f.files {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeArchive) Open(ctx context.Context, path string) (*export.Result, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("no export at %q", path))
	}
	return &export.Result{Format: export.FormatCSV, Filename: "a.csv", Path: path, Data: data}, nil
}

func (f *fakeArchive) Delete(ctx context.Context, path string) error {
	if _, ok := f.files[path]; !ok {
		return core.WrapError(core.ErrNotFound, fmt.Errorf("no export at %q", path))
	}
	delete(f.files, path)
	return nil
}

// exportsMux routes like the server so that PathValue is populated.
func exportsMux(h *ExportsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/exports", h.List)
	mux.HandleFunc("GET /api/exports/{path...}", h.Get)
	mux.HandleFunc("DELETE /api/exports/{path...}", h.Delete)
	return mux
}

func TestExportsHandler_List(t *testing.T) {
	arch := &fakeArchive{files: map[string][]byte{"csv/a.csv": []byte("x")}}
	mux := exportsMux(NewExportsHandler(arch, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/exports?format=csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", arch.gotPrefix)
	var paths []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paths))
	assert.Equal(t, []string{"csv/a.csv"}, paths)
}

func TestExportsHandler_ListFailure(t *testing.T) {
	arch := &fakeArchive{listErr: errors.New("bucket unreachable")}
	mux := exportsMux(NewExportsHandler(arch, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/exports", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestExportsHandler_GetAndDelete(t *testing.T) {
	arch := &fakeArchive{files: map[string][]byte{"csv/a.csv": []byte("timestamp\n")}}
	mux := exportsMux(NewExportsHandler(arch, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/exports/csv/a.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "timestamp\n", w.Body.String())
	assert.Equal(t, `attachment; filename="a.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "csv/a.csv", w.Header().Get("X-Export-Path"))

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/exports/csv/a.csv", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, arch.files)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/exports/csv/a.csv", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/exports/csv/a.csv", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
