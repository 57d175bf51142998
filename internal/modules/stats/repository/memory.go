package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/pkg/apperror"
)

// memoryUserStatsRepository keeps stats in process memory. It is not durable and is meant
// for tests and STORAGE_DRIVER=memory local runs.
type memoryUserStatsRepository struct {
	mu    sync.Mutex
	stats map[string]*entity.UserStats
}

func NewMemoryUserStatsRepository() UserStatsRepository {
	return &memoryUserStatsRepository{stats: make(map[string]*entity.UserStats)}
}

func (r *memoryUserStatsRepository) FindByWallet(ctx context.Context, wallet string) (*entity.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[wallet]
	if !ok {
		return nil, fmt.Errorf("user stats for %s: %w", wallet, apperror.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (r *memoryUserStatsRepository) EnsureExists(ctx context.Context, wallet string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stats[wallet]; !ok {
		now := time.Now()
		r.stats[wallet] = &entity.UserStats{WalletAddress: wallet, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (r *memoryUserStatsRepository) UpdateLastGeneralFact(ctx context.Context, wallet, fact string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stats[wallet]; ok {
		s.LastGeneralFact = fact
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (r *memoryUserStatsRepository) ApplyHuntCompletion(ctx context.Context, wallet string, completionTime int64, reward float64) (*entity.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stats[wallet]
	if !ok {
		s = &entity.UserStats{WalletAddress: wallet, CreatedAt: time.Now()}
		r.stats[wallet] = s
	}

	n := float64(s.TotalHuntsCompleted)
	s.AvgCompletionTime = (s.AvgCompletionTime*n + float64(completionTime)) / (n + 1)
	s.TotalHuntsCompleted++
	s.TotalRewardEarned += reward
	s.UpdatedAt = time.Now()

	cp := *s
	return &cp, nil
}

func (r *memoryUserStatsRepository) Leaderboard(ctx context.Context, orderBy string, limit int) ([]*entity.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]*entity.UserStats, 0, len(r.stats))
	for _, s := range r.stats {
		if s.TotalHuntsCompleted > 0 {
			cp := *s
			rows = append(rows, &cp)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch orderBy {
		case OrderByHunts:
			if a.TotalHuntsCompleted != b.TotalHuntsCompleted {
				return a.TotalHuntsCompleted > b.TotalHuntsCompleted
			}
		case OrderByCompletionTime:
			if a.AvgCompletionTime != b.AvgCompletionTime {
				return a.AvgCompletionTime < b.AvgCompletionTime
			}
		default:
			if a.TotalRewardEarned != b.TotalRewardEarned {
				return a.TotalRewardEarned > b.TotalRewardEarned
			}
		}
		return a.WalletAddress < b.WalletAddress
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
