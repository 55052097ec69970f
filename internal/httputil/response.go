// Package httputil holds the JSON response helpers shared by the API
// handlers. Every failure crossing the service boundary is reported as a
// {"success": false, "error": ...} envelope rather than a bare status.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/monitoring"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

// WriteError writes a failure envelope with the given status and message.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{"success": false, "error": msg})
}

// BadRequest reports a request validation failure.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, msg)
}

// NotFound reports a missing resource.
func NotFound(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusNotFound, msg)
}

// Conflict reports a rejected operation due to current state, such as a
// submission while another job is processing.
func Conflict(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusConflict, msg)
}

// MethodNotAllowed rejects an unsupported HTTP method.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// InternalServerError reports an unexpected handler failure.
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusInternalServerError, msg)
}
