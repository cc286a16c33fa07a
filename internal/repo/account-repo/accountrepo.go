package accountrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// GetBalance returns the current balance, or 0 when the account does not
// exist yet. Absence is not an error on the read path.
func (r *Repository) GetBalance(ctx context.Context, userID string) (int64, error) {
	query := `
        SELECT balance
        FROM accounts
        WHERE user_id = $1
    `
	var balance int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		zap.L().Error("failed to get account balance", zap.Error(err))
		return 0, err
	}
	return balance, nil
}

// EnsureAccount creates the account row at balance 0 if it is absent.
func (r *Repository) EnsureAccount(ctx context.Context, userID string) error {
	query := `
        INSERT INTO accounts (user_id, balance)
        VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING
    `
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		zap.L().Error("failed to ensure account", zap.Error(err))
		return err
	}
	return nil
}

// LockForUpdate reads the account row under a row lock. It must be called
// inside a transaction. Returns nil when the account does not exist.
func (r *Repository) LockForUpdate(ctx context.Context, userID string) (*domain.Account, error) {
	query := `
        SELECT id, user_id, balance, updated_at
        FROM accounts
        WHERE user_id = $1
        FOR UPDATE
    `
	var account domain.Account
	err := r.db.QueryRow(ctx, query, userID).Scan(&account.ID, &account.UserID, &account.Balance, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to lock account", zap.Error(err))
		return nil, err
	}
	return &account, nil
}

// ApplyDelta shifts the balance by delta in one conditional update. The
// WHERE guard makes a debit that would go negative match no rows, so the
// sufficiency check and the write are a single atomic statement.
func (r *Repository) ApplyDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	query := `
        UPDATE accounts
        SET balance = balance + $2, updated_at = now()
        WHERE user_id = $1 AND balance + $2 >= 0
        RETURNING balance
    `
	var balance int64
	err := r.db.QueryRow(ctx, query, userID, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrInsufficientFunds
	}
	if err != nil {
		zap.L().Error("failed to apply balance delta", zap.Error(err))
		return 0, err
	}
	return balance, nil
}
