// Package utils provides response helpers shared by HTTP handlers.
package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ErrorDetails is the body of an error response.
type ErrorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an error API response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent, log only
		slog.Error("Failed to encode JSON response", "err", err)
	}
}

// RespondYAML sends a YAML response with the given status code.
func RespondYAML(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	err := enc.Encode(data)
	if err2 := enc.Close(); err == nil {
		err = err2
	}
	if err != nil {
		slog.Error("Failed to encode YAML response", "err", err)
	}
}

// RespondError sends an error JSON response.
func RespondError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	resp := ErrorResponse{Error: ErrorDetails{Code: code, Message: message}}
	if len(details) > 0 {
		resp.Details = details
	}
	RespondJSON(w, status, resp)
}
