// Package response writes JSON bodies and errors for the proxy API.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/newthinker/cryptostream/internal/core"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	Message       string `json:"message"`
	Code          string `json:"code,omitempty"`
}

// JSON writes data as the response body. The value is encoded before any
// header is sent, so an unencodable value (e.g. NaN) becomes a 500.
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		Error(w, http.StatusInternalServerError,
			core.WrapError(core.ErrProviderResponse, fmt.Errorf("encoding response: %w", err)))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{
		StatusCode:    status,
		StatusMessage: statusMessage(status, err),
		Message:       http.StatusText(status),
	}
	if err != nil {
		resp.Message = err.Error()
	}

	var coreErr *core.Error
	var provErr *core.ProviderError
	switch {
	case errors.As(err, &provErr):
		resp.Code = core.ErrProviderResponse.Code
	case errors.As(err, &coreErr):
		resp.Code = coreErr.Code
	}

	body, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Attachment writes data as a downloadable file.
func Attachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func statusMessage(status int, err error) string {
	var provErr *core.ProviderError
	switch {
	case errors.As(err, &provErr):
		return fmt.Sprintf("Error from %s API", provErr.Provider)
	case errors.Is(err, core.ErrTransport):
		return "Unable to reach market data provider"
	default:
		return http.StatusText(status)
	}
}
