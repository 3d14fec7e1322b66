package service

import (
	"context"

	"coursepdf/internal/repository"
)

// StatsService returns the platform-wide snapshot, recomputed on demand.
type StatsService interface {
	Snapshot(ctx context.Context) (*repository.Stats, error)
}

type statsService struct {
	stats repository.StatsRepository
}

// NewStatsService constructs a new StatsService.
func NewStatsService(stats repository.StatsRepository) StatsService {
	return &statsService{stats: stats}
}

func (s *statsService) Snapshot(ctx context.Context) (*repository.Stats, error) {
	return s.stats.Collect(ctx)
}
