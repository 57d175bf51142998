package dto

type LeaderboardQuery struct {
	OrderBy string `form:"order_by" binding:"omitempty,oneof=total_testnet_algo_earned total_hunts_completed avg_completion_time"`
	Limit   int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

// LeaderboardEntry is one ranked wallet. Rank is 1-based.
type LeaderboardEntry struct {
	Rank                   int     `json:"rank"`
	WalletAddress          string  `json:"wallet_address"`
	WalletDisplay          string  `json:"wallet_display"`
	TotalHuntsCompleted    int     `json:"total_hunts_completed"`
	TotalTestnetAlgoEarned float64 `json:"total_testnet_algo_earned"`
	AvgCompletionTime      float64 `json:"avg_completion_time"`
}

type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Count       int                `json:"count"`
	OrderBy     string             `json:"order_by"`
}
