package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCleaner struct {
	n   int64
	err error
}

func (s stubCleaner) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.n, s.err
}

func TestSessionSweepAgent(t *testing.T) {
	a := NewSessionSweepAgent(stubCleaner{n: 3}, "@every 5m")

	assert.Equal(t, "SessionSweepAgent", a.GetName())
	assert.Equal(t, "@every 5m", a.GetSchedule())
	assert.NoError(t, a.Execute(context.Background()))

	failing := NewSessionSweepAgent(stubCleaner{err: errors.New("db down")}, "")
	assert.EqualError(t, failing.Execute(context.Background()), "db down")
}
