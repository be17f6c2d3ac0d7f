package errors

import (
	"encoding/json"
	"net/http"
)

// WriteError renders err as an ErrorResponse with the status of its kind.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())

	return json.NewEncoder(w).Encode(ErrorResponse{
		Code:     appErr.Code,
		Message:  appErr.Message,
		Messages: appErr.Messages,
		Details:  appErr.Details,
	})
}
