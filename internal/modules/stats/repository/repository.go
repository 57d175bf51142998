package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/pkg/apperror"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Leaderboard orderings. Values are column names.
const (
	OrderByReward         = "total_testnet_algo_earned"
	OrderByHunts          = "total_hunts_completed"
	OrderByCompletionTime = "avg_completion_time"
)

type UserStatsRepository interface {
	FindByWallet(ctx context.Context, wallet string) (*entity.UserStats, error)
	// EnsureExists creates a zeroed record for wallet if none exists.
	EnsureExists(ctx context.Context, wallet string) error
	UpdateLastGeneralFact(ctx context.Context, wallet, fact string) error
	// ApplyHuntCompletion folds one won hunt into the aggregates in a single statement and
	// returns the updated record.
	ApplyHuntCompletion(ctx context.Context, wallet string, completionTime int64, reward float64) (*entity.UserStats, error)
	Leaderboard(ctx context.Context, orderBy string, limit int) ([]*entity.UserStats, error)
}

type userStatsRepository struct {
	db *gorm.DB
}

func NewUserStatsRepository(db *gorm.DB) UserStatsRepository {
	return &userStatsRepository{db: db}
}

func (r *userStatsRepository) FindByWallet(ctx context.Context, wallet string) (*entity.UserStats, error) {
	var stats entity.UserStats
	if err := r.db.WithContext(ctx).First(&stats, "wallet_address = ?", wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user stats for %s: %w", wallet, apperror.ErrNotFound)
		}
		return nil, err
	}
	return &stats, nil
}

func (r *userStatsRepository) EnsureExists(ctx context.Context, wallet string) error {
	stats := entity.UserStats{WalletAddress: wallet}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&stats).Error
}

func (r *userStatsRepository) UpdateLastGeneralFact(ctx context.Context, wallet, fact string) error {
	return r.db.WithContext(ctx).
		Model(&entity.UserStats{}).
		Where("wallet_address = ?", wallet).
		Update("last_general_fact", fact).Error
}

func (r *userStatsRepository) ApplyHuntCompletion(ctx context.Context, wallet string, completionTime int64, reward float64) (*entity.UserStats, error) {
	stats := entity.UserStats{
		WalletAddress:       wallet,
		TotalHuntsCompleted: 1,
		TotalRewardEarned:   reward,
		AvgCompletionTime:   float64(completionTime),
	}

	// SET expressions read the pre-update row, so the mean is weighted by the old count.
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "wallet_address"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"avg_completion_time": gorm.Expr(
						"(users.avg_completion_time * users.total_hunts_completed + ?) / (users.total_hunts_completed + 1)",
						completionTime,
					),
					"total_hunts_completed":     gorm.Expr("users.total_hunts_completed + 1"),
					"total_testnet_algo_earned": gorm.Expr("users.total_testnet_algo_earned + ?", reward),
					"updated_at":                time.Now(),
				}),
			},
			clause.Returning{},
		).
		Create(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *userStatsRepository) Leaderboard(ctx context.Context, orderBy string, limit int) ([]*entity.UserStats, error) {
	// faster is better for completion time
	desc := orderBy != OrderByCompletionTime

	query := r.db.WithContext(ctx).
		Where("total_hunts_completed > 0").
		Order(clause.OrderByColumn{Column: clause.Column{Name: orderBy}, Desc: desc}).
		Order("wallet_address").
		Limit(limit)

	var rows []*entity.UserStats
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
