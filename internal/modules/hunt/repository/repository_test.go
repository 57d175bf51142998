package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"anoa.com/mindminer/internal/entity"
	"anoa.com/mindminer/pkg/apperror"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestSessionRepository_UpdateIfStatusGuardsOnStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)
	gameID := uuid.New()
	won := entity.SessionWon
	permalink := "/r/science/comments/p1/thread/c2/"

	const casSQL = `UPDATE "game_sessions" SET .* WHERE game_id = \$\d+ AND status = \$\d+`

	mock.ExpectExec(casSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.UpdateIfStatus(context.Background(), gameID, entity.SessionActive, SessionUpdate{Status: &won, SubmittedPermalink: &permalink})
	require.NoError(t, err)
	assert.True(t, ok)

	// a concurrent writer already moved the row
	mock.ExpectExec(casSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.UpdateIfStatus(context.Background(), gameID, entity.SessionActive, SessionUpdate{Status: &won})
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(casSQL).WillReturnError(errors.New("connection reset"))
	_, err = repo.UpdateIfStatus(context.Background(), gameID, entity.SessionActive, SessionUpdate{Status: &won})
	assert.Error(t, err)

	ok, err = repo.UpdateIfStatus(context.Background(), gameID, entity.SessionActive, SessionUpdate{})
	require.NoError(t, err)
	assert.False(t, ok, "an empty update touches nothing")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_MarkExpiredBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectExec(`UPDATE "game_sessions" SET .*"status"=.* WHERE status = \$\d+ AND expiration_timestamp < \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkExpiredBefore(context.Background(), time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "game_sessions" WHERE game_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"game_id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
