// internal/httputils/errors.go
package httputils

import (
	"encoding/json"
	"net/http"
)

// ErrorPayload is the JSON body written for request failures.
type ErrorPayload struct {
	// Code is a stable machine-readable identifier
	Code string `json:"code"`

	// Message is the human-readable description
	Message string `json:"message"`

	// Details carries optional structured context
	Details interface{} `json:"details,omitempty"`
}

// WriteError writes a structured error response with the given HTTP
// status.
func WriteError(w http.ResponseWriter, status int, payload ErrorPayload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Encoding a flat payload cannot fail; the write itself may, but
	// there is nothing left to tell the client at that point.
	_ = json.NewEncoder(w).Encode(payload)
}
