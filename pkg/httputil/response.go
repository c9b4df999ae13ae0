package httputil

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"siachat-backend/pkg/zlog"
)

// errorBody is the standard error envelope: {"success": false, "error": "..."}.
// Field-level validation details ride along under "details" when present.
type errorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// RespondJSON writes a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zlog.Error("encoding JSON response", zap.Error(err))
		// Can't write the header again here, just log the error.
	}
}

// RespondError writes a JSON error response with the given status code and message.
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, errorBody{Success: false, Error: message})
}

// RespondValidationError writes a 400 with per-field error details.
func RespondValidationError(w http.ResponseWriter, details map[string]string) {
	RespondJSON(w, http.StatusBadRequest, errorBody{
		Success: false,
		Error:   "Invalid request",
		Details: details,
	})
}
