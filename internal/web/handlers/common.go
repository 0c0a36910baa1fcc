package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kozaktomas/face-catalog/internal/catalog"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondCatalogError maps the catalog error taxonomy to HTTP statuses.
// Internal detail never reaches the client; the message on the catalog
// error is written for users.
func respondCatalogError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch catalog.KindOf(err) {
	case catalog.KindNotFound:
		status = http.StatusNotFound
	case catalog.KindInvalidInput:
		status = http.StatusBadRequest
	case catalog.KindConflict:
		status = http.StatusConflict
	case catalog.KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		respondError(w, status, "internal error")
		return
	}
	message := err.Error()
	var ce *catalog.Error
	if errors.As(err, &ce) {
		message = ce.Message
	}
	respondError(w, status, message)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
