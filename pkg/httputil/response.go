package httputil

import (
	"encoding/json"
	"net/http"

	api_models "kentj-backend/internal/models"

	"go.uber.org/zap"
)

// RespondJSON writes a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Can't write header again here, just log the error
		zap.L().Error("error encoding JSON response", zap.Error(err))
	}
}

// RespondError writes a JSON error response with the given status code and message.
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, api_models.ErrorResponse{Error: message})
}

// RespondFailure writes {success:false, error, message, timestamp} for degraded upstream failures.
func RespondFailure(w http.ResponseWriter, statusCode int, errText, message, timestamp string) {
	success := false
	RespondJSON(w, statusCode, api_models.ErrorResponse{
		Error:     errText,
		Message:   message,
		Success:   &success,
		Timestamp: timestamp,
	})
}
