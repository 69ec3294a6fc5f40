package session

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectByToken = `SELECT id, user_id, token, expires_at, created_at FROM sessions WHERE token = $1`

func TestNewSession(t *testing.T) {
	userID := uuid.New()
	s, err := NewSession(userID)
	require.NoError(t, err)

	assert.Equal(t, userID, s.UserID)
	assert.NotEmpty(t, s.Token)
	assert.WithinDuration(t, time.Now().Add(sessionDuration), s.ExpiresAt, time.Minute)

	other, err := NewSession(userID)
	require.NoError(t, err)
	assert.NotEqual(t, s.Token, other.Token)
}

func TestRepository_GetByToken(t *testing.T) {
	cols := []string{"id", "user_id", "token", "expires_at", "created_at"}

	t.Run("valid", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(selectByToken).WithArgs("tok").WillReturnRows(
			sqlmock.NewRows(cols).AddRow(uuid.NewString(), uuid.NewString(), "tok", time.Now().Add(time.Hour), time.Now()))

		s, err := NewRepository(db).GetByToken(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "tok", s.Token)
	})

	t.Run("expired", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).WithArgs("old").WillReturnRows(
			sqlmock.NewRows(cols).AddRow(uuid.NewString(), uuid.NewString(), "old", time.Now().Add(-time.Hour), time.Now()))

		_, err = NewRepository(db).GetByToken(context.Background(), "old")
		assert.ErrorIs(t, err, ErrExpiredSession)
	})

	t.Run("unknown", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(regexp.QuoteMeta("FROM sessions")).WithArgs("nope").WillReturnRows(sqlmock.NewRows(cols))

		_, err = NewRepository(db).GetByToken(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}
