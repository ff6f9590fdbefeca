package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepoCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	t.Run("normalizes email", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, email, password_hash) VALUES (?,?,?)")).
			WithArgs("alice", "alice@x.com", "$2a$hash").
			WillReturnResult(sqlmock.NewResult(1, 1))

		id, err := repo.Create(ctx, " alice ", " Alice@X.com ", "$2a$hash")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate entry", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@x.com' for key 'uq_users_email'"})

		_, err := repo.Create(ctx, "alice2", "alice@x.com", "$2a$hash")
		assert.ErrorIs(t, err, ErrDuplicateCredential)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other failures pass through", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("disk full"))

		_, err := repo.Create(ctx, "bob", "bob@x.com", "$2a$hash")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicateCredential)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepoLookups(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	cols := []string{"id", "username", "email", "password_hash", "created_at"}
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? LIMIT 1")).
		WithArgs("alice@x.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "alice", "alice@x.com", "$2a$hash", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? LIMIT 1")).
		WithArgs("nobody@x.com").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "alice", "alice@x.com", "$2a$hash", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? LIMIT 1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(cols))

	u, err := repo.GetByEmail(ctx, "ALICE@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "$2a$hash", u.PasswordHash)

	_, err = repo.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	u, err = repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), u.ID)

	_, err = repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
