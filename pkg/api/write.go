package api

import (
	"encoding/json"
	"net/http"
)

// WriteError writes apiErr as a JSON ErrorResponse with the given status.
func WriteError(w http.ResponseWriter, apiErr *APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: apiErr})
}
