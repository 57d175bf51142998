package service

import (
	"context"
	"fmt"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/internal/modules/stats/dto"
	"anoa.com/mindminer/internal/modules/stats/repository"
)

const defaultLeaderboardLimit = 10

type StatsService interface {
	GetUserStats(ctx context.Context, wallet string) (*entity.UserStats, error)
	GetLeaderboard(ctx context.Context, query dto.LeaderboardQuery) (*dto.LeaderboardResponse, error)
}

type statsService struct {
	repo repository.UserStatsRepository
}

func NewStatsService(repo repository.UserStatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) GetUserStats(ctx context.Context, wallet string) (*entity.UserStats, error) {
	return s.repo.FindByWallet(ctx, wallet)
}

func (s *statsService) GetLeaderboard(ctx context.Context, query dto.LeaderboardQuery) (*dto.LeaderboardResponse, error) {
	orderBy := query.OrderBy
	if orderBy == "" {
		orderBy = repository.OrderByReward
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	rows, err := s.repo.Leaderboard(ctx, orderBy, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}

	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, dto.LeaderboardEntry{
			Rank:                   i + 1,
			WalletAddress:          row.WalletAddress,
			WalletDisplay:          ShortWallet(row.WalletAddress),
			TotalHuntsCompleted:    row.TotalHuntsCompleted,
			TotalTestnetAlgoEarned: row.TotalRewardEarned,
			AvgCompletionTime:      row.AvgCompletionTime,
		})
	}

	return &dto.LeaderboardResponse{
		Leaderboard: entries,
		Count:       len(entries),
		OrderBy:     orderBy,
	}, nil
}

// ShortWallet renders an address as its first 6 and last 4 characters.
func ShortWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}
