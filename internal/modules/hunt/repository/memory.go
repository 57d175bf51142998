package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/pkg/apperror"
	"github.com/google/uuid"
)

// memorySessionRepository serializes every operation behind one mutex, which gives the same
// compare-and-swap guarantees as the conditional UPDATE. Not durable.
type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[uuid.UUID]*entity.Session)}
}

func (r *memorySessionRepository) Create(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.GameID]; exists {
		return fmt.Errorf("duplicate game id %s", session.GameID)
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	cp := *session
	r.sessions[session.GameID] = &cp
	return nil
}

func (r *memorySessionRepository) FindByID(ctx context.Context, gameID uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[gameID]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memorySessionRepository) UpdateIfStatus(ctx context.Context, gameID uuid.UUID, expected entity.SessionStatus, update SessionUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[gameID]
	if !ok || s.Status != expected {
		return false, nil
	}
	update.Apply(s)
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *memorySessionRepository) MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, s := range r.sessions {
		if s.Status == entity.SessionActive && s.ExpirationTimestamp.Before(now) {
			s.Status = entity.SessionTimeout
			s.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *memorySessionRepository) FindByWallet(ctx context.Context, wallet string, limit int) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Session
	for _, s := range r.sessions {
		if s.UserWallet == wallet {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
