package wire

import (
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

// ErrorJSON is the error body returned for every failed request.
type ErrorJSON struct {
	Status  int    `json:"status"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewErrorJSON renders err in the wire error shape.
func NewErrorJSON(err error) *ErrorJSON {
	apiErr := domain.AsAPIError(err)
	return &ErrorJSON{
		Status:  apiErr.HTTPStatusCode(),
		Type:    string(apiErr.Type),
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Param:   apiErr.Param,
	}
}

// WriteJSON writes payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError writes err as a JSON error response.
func WriteError(w http.ResponseWriter, err error) {
	body := NewErrorJSON(err)
	WriteJSON(w, body.Status, body)
}
