package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"anoa.com/mindminer/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserStats_EnsureExistsIsIdempotent(t *testing.T) {
	repo := NewMemoryUserStatsRepository()
	ctx := context.Background()

	_, err := repo.FindByWallet(ctx, "WALLETA")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	require.NoError(t, repo.EnsureExists(ctx, "WALLETA"))
	require.NoError(t, repo.UpdateLastGeneralFact(ctx, "WALLETA", "honey never spoils"))
	require.NoError(t, repo.EnsureExists(ctx, "WALLETA"))

	stats, err := repo.FindByWallet(ctx, "WALLETA")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalHuntsCompleted)
	assert.Equal(t, "honey never spoils", stats.LastGeneralFact)
}

func TestMemoryUserStats_AverageIsArithmeticMean(t *testing.T) {
	repo := NewMemoryUserStatsRepository()
	ctx := context.Background()
	require.NoError(t, repo.EnsureExists(ctx, "WALLETA"))

	times := []int64{120, 45, 300, 61, 900, 7}
	var wg sync.WaitGroup
	for _, tm := range times {
		wg.Add(1)
		go func(tm int64) {
			defer wg.Done()
			_, err := repo.ApplyHuntCompletion(ctx, "WALLETA", tm, 0.005)
			assert.NoError(t, err)
		}(tm)
	}
	wg.Wait()

	var sum int64
	for _, tm := range times {
		sum += tm
	}

	stats, err := repo.FindByWallet(ctx, "WALLETA")
	require.NoError(t, err)
	assert.Equal(t, len(times), stats.TotalHuntsCompleted)
	assert.InDelta(t, float64(sum)/float64(len(times)), stats.AvgCompletionTime, 1e-9)
	assert.InDelta(t, 0.005*float64(len(times)), stats.TotalRewardEarned, 1e-9)
}

func TestMemoryUserStats_Leaderboard(t *testing.T) {
	repo := NewMemoryUserStatsRepository()
	ctx := context.Background()

	_, _ = repo.ApplyHuntCompletion(ctx, "A", 100, 0.010)
	_, _ = repo.ApplyHuntCompletion(ctx, "B", 50, 0.005)
	_, _ = repo.ApplyHuntCompletion(ctx, "B", 50, 0.008)
	require.NoError(t, repo.EnsureExists(ctx, "C"))

	byReward, err := repo.Leaderboard(ctx, OrderByReward, 10)
	require.NoError(t, err)
	require.Len(t, byReward, 2, "wallets without wins are not ranked")
	assert.Equal(t, "B", byReward[0].WalletAddress)

	byTime, err := repo.Leaderboard(ctx, OrderByCompletionTime, 1)
	require.NoError(t, err)
	require.Len(t, byTime, 1)
	assert.Equal(t, "B", byTime[0].WalletAddress)
}
