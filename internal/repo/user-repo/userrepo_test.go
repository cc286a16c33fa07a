package userrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"github.com/wareqa/creditledger/internal/domain"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	t.Cleanup(mockDB.Close)

	return repo, mockDB
}

func TestRepository_FindByEmail(t *testing.T) {
	repo, mock := NewMock(t)
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	tests := []struct {
		name      string
		email     string
		mockSetup func()
		expectErr bool
		result    *domain.User
	}{
		{
			name:  "Existing user is found",
			email: "student@university.edu.sa",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "is_admin"}).
					AddRow(userID, "student@university.edu.sa", "hash", false)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, is_admin FROM users WHERE email = $1`)).
					WithArgs("student@university.edu.sa").
					WillReturnRows(rows)
			},
			result: &domain.User{
				ID:           userID,
				Email:        "student@university.edu.sa",
				PasswordHash: "hash",
			},
		},
		{
			name:  "Unknown email returns nil",
			email: "nobody@university.edu.sa",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, is_admin FROM users WHERE email = $1`)).
					WithArgs("nobody@university.edu.sa").
					WillReturnError(pgx.ErrNoRows)
			},
			result: nil,
		},
		{
			name:  "Database error",
			email: "student@university.edu.sa",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, is_admin FROM users WHERE email = $1`)).
					WithArgs("student@university.edu.sa").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByEmail(context.Background(), tt.email)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.result, result)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FindByID(t *testing.T) {
	repo, mock := NewMock(t)
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		wantNil   bool
	}{
		{
			name: "Existing user is found",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "is_admin"}).
					AddRow(userID, "student@university.edu.sa", "hash", true)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, is_admin FROM users WHERE id = $1`)).
					WithArgs(userID).
					WillReturnRows(rows)
			},
		},
		{
			name: "Unknown id returns nil",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, is_admin FROM users WHERE id = $1`)).
					WithArgs(userID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByID(context.Background(), userID)

			assert.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, result)
			} else {
				assert.NotNil(t, result)
				assert.True(t, result.IsAdmin)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()
	user := &domain.User{
		ID:           "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		Email:        "student@university.edu.sa",
		PasswordHash: "hash",
	}

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "Creates the user",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"created_at"}).AddRow(now)
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WithArgs(user.ID, user.Email, user.PasswordHash, user.IsAdmin).
					WillReturnRows(rows)
			},
		},
		{
			name: "Duplicate email fails",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WithArgs(user.ID, user.Email, user.PasswordHash, user.IsAdmin).
					WillReturnError(errors.New("duplicate key value violates unique constraint"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			created, err := repo.Create(context.Background(), user)

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, now, created.CreatedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
