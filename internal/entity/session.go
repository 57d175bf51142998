package entity

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionWon     SessionStatus = "won"
	SessionLost    SessionStatus = "lost"
	SessionTimeout SessionStatus = "timeout"
)

// IsTerminal reports whether no further status transition is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionWon || s == SessionLost || s == SessionTimeout
}

// CanTransition allows only active -> won|lost|timeout.
func CanTransition(from, to SessionStatus) bool {
	return from == SessionActive && to.IsTerminal()
}

// Session is one hunt attempt. WinningCommentPermalink is never sent to the player.
type Session struct {
	GameID                  uuid.UUID     `gorm:"type:uuid;primaryKey" json:"game_id"`
	UserWallet              string        `gorm:"size:64;not null;index:idx_session_wallet_created,priority:1" json:"user_wallet"`
	Subreddit               string        `gorm:"size:64" json:"subreddit"`
	TargetPostURL           string        `gorm:"not null" json:"reddit_post_url"`
	PostTitle               string        `json:"post_title"`
	PostScore               int           `json:"post_score"`
	PostCommentCount        int           `json:"post_comment_count"`
	WinningCommentPermalink string        `gorm:"not null" json:"-"`
	ClueText                string        `gorm:"type:text;not null" json:"clue_text"`
	ExtractedFact           string        `gorm:"type:text;not null" json:"-"`
	ExpirationTimestamp     time.Time     `gorm:"not null;index:idx_session_status_expiry,priority:2" json:"expiration_timestamp"`
	Status                  SessionStatus `gorm:"size:16;not null;default:active;index:idx_session_status_expiry,priority:1" json:"status"`
	SubmittedPermalink      *string       `json:"submitted_permalink,omitempty"`
	CompletionTime          *int64        `json:"completion_time,omitempty"` // seconds
	AlgoReward              *float64      `json:"algo_reward,omitempty"`
	TransactionID           *string       `gorm:"size:128" json:"transaction_id,omitempty"`
	CreatedAt               time.Time     `gorm:"index:idx_session_wallet_created,priority:2" json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`
}

func (Session) TableName() string { return "game_sessions" }

// IsExpired compares against the stored expiration, not a running timer.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpirationTimestamp)
}
