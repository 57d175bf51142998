package dto

import (
	"time"

	"github.com/google/uuid"
)

// Submission outcomes.
const (
	OutcomeWon              = "won"
	OutcomeLost             = "lost"
	OutcomeTimeout          = "timeout"
	OutcomeGameInactive     = "game_inactive"
	OutcomeInvalidPermalink = "invalid_permalink"
)

type StartHuntRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required,max=64"`
}

type HuntDetails struct {
	PostTitle    string `json:"post_title"`
	PostScore    int    `json:"post_score"`
	CommentCount int    `json:"comment_count"`
	Difficulty   string `json:"difficulty"`
}

// StartHuntResponse never carries the winning comment.
type StartHuntResponse struct {
	GameID         uuid.UUID   `json:"game_id"`
	RedditPostURL  string      `json:"reddit_post_url"`
	Clue           string      `json:"clue"`
	GeneralFact    string      `json:"general_fact"`
	Subreddit      string      `json:"subreddit"`
	ExpirationTime time.Time   `json:"expiration_time"`
	HuntDetails    HuntDetails `json:"hunt_details"`
}

type SubmitDiscoveryRequest struct {
	WalletAddress      string `json:"wallet_address" binding:"required,max=64"`
	SubmittedPermalink string `json:"submitted_permalink" binding:"required,max=512"`
}

type VerificationResult struct {
	IsCorrect      bool     `json:"is_correct"`
	PerfectMatch   bool     `json:"perfect_match"`
	Confidence     float64  `json:"confidence"`
	Feedback       string   `json:"feedback"`
	Reasoning      string   `json:"reasoning,omitempty"`
	FactMatch      *bool    `json:"fact_match,omitempty"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	// Fallback is set when the verdict came from the heuristic instead of the AI verifier.
	Fallback bool `json:"fallback"`
}

type RewardDetails struct {
	AlgoEarned    float64 `json:"algo_earned"`
	BaseReward    float64 `json:"base_reward"`
	BonusReward   float64 `json:"bonus_reward"`
	TransactionID string  `json:"transaction_id"`
	// PaymentPending is set when the ledger payment failed and TransactionID is synthetic.
	PaymentPending bool   `json:"payment_pending"`
	Achievement    string `json:"achievement,omitempty"`
}

type GameDetails struct {
	Difficulty     string `json:"difficulty"`
	CompletionTime int64  `json:"completion_time"`
	PerfectMatch   bool   `json:"perfect_match"`
	IsFirstWin     bool   `json:"is_first_win"`
}

// SubmitDiscoveryResponse is the structured outcome of a submission. Only a won outcome
// carries rewards and the extracted fact.
type SubmitDiscoveryResponse struct {
	Success            bool                `json:"success"`
	Outcome            string              `json:"outcome"`
	Message            string              `json:"message"`
	CurrentStatus      string              `json:"current_status,omitempty"`
	ExpiredAt          *time.Time          `json:"expired_at,omitempty"`
	SubmittedPermalink string              `json:"submitted_permalink,omitempty"`
	CompletionTime     *int64              `json:"completion_time,omitempty"`
	Verification       *VerificationResult `json:"verification,omitempty"`
	Rewards            *RewardDetails      `json:"rewards,omitempty"`
	GameDetails        *GameDetails        `json:"game_details,omitempty"`
	ExtractedFact      string              `json:"extracted_fact,omitempty"`
}

// SessionView is the player-safe projection of a session. ExtractedFact is only filled once
// the session is won.
type SessionView struct {
	GameID              uuid.UUID `json:"game_id"`
	UserWallet          string    `json:"user_wallet"`
	Subreddit           string    `json:"subreddit"`
	RedditPostURL       string    `json:"reddit_post_url"`
	Clue                string    `json:"clue"`
	Status              string    `json:"status"`
	ExpirationTimestamp time.Time `json:"expiration_timestamp"`
	SubmittedPermalink  *string   `json:"submitted_permalink,omitempty"`
	CompletionTime      *int64    `json:"completion_time,omitempty"`
	AlgoReward          *float64  `json:"algo_reward,omitempty"`
	TransactionID       *string   `json:"transaction_id,omitempty"`
	ExtractedFact       string    `json:"extracted_fact,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CleanupResponse struct {
	Success                bool   `json:"success"`
	ExpiredSessionsUpdated int64  `json:"expired_sessions_updated"`
	Message                string `json:"message"`
}
