package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"siachat-backend/internal/services"
	"siachat-backend/pkg/httputil"
	"siachat-backend/pkg/zlog"
)

// StatsHandlers serves the admin statistics endpoint.
type StatsHandlers struct {
	statsService *services.StatsService
}

// NewStatsHandlers creates a new StatsHandlers instance.
func NewStatsHandlers(statsService *services.StatsService) *StatsHandlers {
	return &StatsHandlers{
		statsService: statsService,
	}
}

// HandleGetStats returns aggregate session statistics.
func (h *StatsHandlers) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetStats(r.Context())
	if err != nil {
		zlog.Error("stats query failed", zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}
