package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/clipcast/backend/internal/logging"
)

// healthTimeout bounds each dependency check.
const healthTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	Store HealthChecker
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := http.StatusOK
	payload := map[string]string{"status": "ok", "mongo": "ok"}
	if h.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "dependency", "mongo", "error", err)
			status = http.StatusServiceUnavailable
			payload = map[string]string{"status": "degraded", "mongo": "unreachable"}
		}
	} else {
		payload["mongo"] = "unconfigured"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
