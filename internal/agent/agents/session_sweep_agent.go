package agents

import (
	"context"
	"log"
)

// SessionCleaner adalah bagian dari HuntService yang dipakai agent ini
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// SessionSweepAgent menandai session aktif yang sudah lewat expiration sebagai timeout
type SessionSweepAgent struct {
	cleaner  SessionCleaner
	schedule string
}

// NewSessionSweepAgent membuat agent sweep. schedule kosong berarti hanya on-demand.
func NewSessionSweepAgent(cleaner SessionCleaner, schedule string) *SessionSweepAgent {
	return &SessionSweepAgent{
		cleaner:  cleaner,
		schedule: schedule,
	}
}

func (a *SessionSweepAgent) GetName() string {
	return "SessionSweepAgent"
}

func (a *SessionSweepAgent) GetSchedule() string {
	return a.schedule
}

func (a *SessionSweepAgent) Execute(ctx context.Context) error {
	n, err := a.cleaner.CleanupExpiredSessions(ctx)
	if err != nil {
		return err
	}

	if n > 0 {
		log.Printf("🧹 [%s] %d sessions moved to timeout", a.GetName(), n)
	}
	return nil
}
