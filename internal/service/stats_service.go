package service

import (
	"context"
	"fmt"

	"github.com/JaeTrim/Traffic-AI/internal/repository"
)

type statsService struct {
	repos *repository.Repositories
}

func newStatsService(repos *repository.Repositories) *statsService {
	return &statsService{repos: repos}
}

// Counts returns the number of users, models and collections
func (s *statsService) Counts(ctx context.Context) (map[string]int, error) {
	counters := map[string]func(context.Context) (int, error){
		"users":       s.repos.User.Count,
		"models":      s.repos.Model.Count,
		"collections": s.repos.Collection.Count,
	}

	counts := make(map[string]int, len(counters))
	for name, count := range counters {
		n, err := count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}
