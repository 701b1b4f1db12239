package api

import (
	"context"
	"net/http"

	"github.com/okian/postboard/pkg/logger"
)

// HealthDependencies defines the store probe used by /healthz.
type HealthDependencies interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz requests. It answers 200 when the store
// responds to a ping and 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ping(r.Context()); err != nil {
		logger.Get().Warn(r.Context(), "store ping failed", logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    CodeStoreUnavailable,
			Message: publicMessage(http.StatusServiceUnavailable, err),
		})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
