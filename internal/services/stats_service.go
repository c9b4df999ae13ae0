package services

import (
	"context"

	"siachat-backend/internal/models"
	"siachat-backend/internal/store"
)

// StatsService serves the admin aggregate view.
type StatsService struct {
	store store.Store
}

// NewStatsService creates a new StatsService.
func NewStatsService(st store.Store) *StatsService {
	return &StatsService{store: st}
}

// GetStats returns aggregate session statistics.
func (s *StatsService) GetStats(ctx context.Context) (*models.SessionStats, error) {
	return s.store.GetSessionStats(ctx)
}
