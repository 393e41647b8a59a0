package middleware

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/clipcast/backend/internal/logging"
)

type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// writeError answers with the API error envelope for failures raised before a
// handler runs.
func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{StatusCode: status, Message: message}); err != nil {
		logging.FromContext(ctx).Error("encode error envelope", "status", status, "error", err)
	}
}
