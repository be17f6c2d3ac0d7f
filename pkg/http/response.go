package http

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes data with statusCode. Once the header is sent the error
// can only be logged by the caller.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
