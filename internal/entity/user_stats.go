package entity

import "time"

// UserStats holds running aggregates for one wallet. AvgCompletionTime is a mean over won
// hunts only.
type UserStats struct {
	WalletAddress       string    `gorm:"size:64;primaryKey" json:"wallet_address"`
	TotalHuntsCompleted int       `gorm:"not null;default:0" json:"total_hunts_completed"`
	TotalRewardEarned   float64   `gorm:"column:total_testnet_algo_earned;not null;default:0" json:"total_testnet_algo_earned"`
	AvgCompletionTime   float64   `gorm:"not null;default:0" json:"avg_completion_time"`
	LastGeneralFact     string    `gorm:"type:text" json:"last_general_fact"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (UserStats) TableName() string { return "users" }
