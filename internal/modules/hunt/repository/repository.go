package repository

import (
	"context"
	"errors"
	"time"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionUpdate lists the columns a conditional update may write. Nil fields are left as is.
type SessionUpdate struct {
	Status             *entity.SessionStatus
	SubmittedPermalink *string
	CompletionTime     *int64
	AlgoReward         *float64
	TransactionID      *string
}

func (u SessionUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Status != nil {
		cols["status"] = *u.Status
	}
	if u.SubmittedPermalink != nil {
		cols["submitted_permalink"] = *u.SubmittedPermalink
	}
	if u.CompletionTime != nil {
		cols["completion_time"] = *u.CompletionTime
	}
	if u.AlgoReward != nil {
		cols["algo_reward"] = *u.AlgoReward
	}
	if u.TransactionID != nil {
		cols["transaction_id"] = *u.TransactionID
	}
	return cols
}

// Apply copies the set fields onto s.
func (u SessionUpdate) Apply(s *entity.Session) {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.SubmittedPermalink != nil {
		v := *u.SubmittedPermalink
		s.SubmittedPermalink = &v
	}
	if u.CompletionTime != nil {
		v := *u.CompletionTime
		s.CompletionTime = &v
	}
	if u.AlgoReward != nil {
		v := *u.AlgoReward
		s.AlgoReward = &v
	}
	if u.TransactionID != nil {
		v := *u.TransactionID
		s.TransactionID = &v
	}
}

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	FindByID(ctx context.Context, gameID uuid.UUID) (*entity.Session, error)
	// UpdateIfStatus applies update only while the stored status equals expected. It reports
	// false, without error, when another writer got there first.
	UpdateIfStatus(ctx context.Context, gameID uuid.UUID, expected entity.SessionStatus, update SessionUpdate) (bool, error)
	// MarkExpiredBefore moves every active session whose expiration is before now to timeout.
	MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error)
	FindByWallet(ctx context.Context, wallet string, limit int) ([]*entity.Session, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByID(ctx context.Context, gameID uuid.UUID) (*entity.Session, error) {
	var session entity.Session
	if err := r.db.WithContext(ctx).First(&session, "game_id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) UpdateIfStatus(ctx context.Context, gameID uuid.UUID, expected entity.SessionStatus, update SessionUpdate) (bool, error) {
	cols := update.columns()
	if len(cols) == 0 {
		return false, nil
	}

	res := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("game_id = ? AND status = ?", gameID, expected).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionRepository) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("status = ? AND expiration_timestamp < ?", entity.SessionActive, now).
		Update("status", entity.SessionTimeout)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) FindByWallet(ctx context.Context, wallet string, limit int) ([]*entity.Session, error) {
	var sessions []*entity.Session
	if err := r.db.WithContext(ctx).
		Where("user_wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
