package settlementrepo

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

// Reserve claims the payment id for processing. The unique constraint on
// payment_id is the serialization point: exactly one caller gets a fresh
// reservation, every other caller gets the existing record back.
func (r *Repository) Reserve(ctx context.Context, paymentID, userID string, paidAmount int64) (*domain.Settlement, bool, error) {
	query := `
        INSERT INTO settlements (payment_id, user_id, paid_amount, status)
        VALUES ($1, $2, $3, 'pending')
        ON CONFLICT (payment_id) DO NOTHING
        RETURNING id, payment_id, user_id, paid_amount, credits_granted, new_balance, status, created_at, updated_at
    `
	var s domain.Settlement
	err := r.db.QueryRow(ctx, query, paymentID, userID, paidAmount).Scan(
		&s.ID, &s.PaymentID, &s.UserID, &s.PaidAmount, &s.CreditsGranted, &s.NewBalance, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.Get(ctx, paymentID)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing == nil {
			// Reservation lost the race and the winner rolled back.
			return nil, false, domain.ErrConcurrencyConflict
		}
		return existing, false, nil
	}
	if err != nil {
		zap.L().Error("failed to reserve settlement", zap.Error(err))
		return nil, false, err
	}
	return &s, true, nil
}

func (r *Repository) Get(ctx context.Context, paymentID string) (*domain.Settlement, error) {
	query := `
        SELECT id, payment_id, user_id, paid_amount, credits_granted, new_balance, status, created_at, updated_at
        FROM settlements
        WHERE payment_id = $1
    `
	var s domain.Settlement
	err := r.db.QueryRow(ctx, query, paymentID).Scan(
		&s.ID, &s.PaymentID, &s.UserID, &s.PaidAmount, &s.CreditsGranted, &s.NewBalance, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get settlement", zap.Error(err))
		return nil, err
	}
	return &s, nil
}

// LockByPaymentID reads the settlement row under a row lock so concurrent
// settlers of the same payment serialize. Must run inside a transaction.
// Returns nil when the row does not exist.
func (r *Repository) LockByPaymentID(ctx context.Context, paymentID string) (*domain.Settlement, error) {
	query := `
        SELECT id, payment_id, user_id, paid_amount, credits_granted, new_balance, status, created_at, updated_at
        FROM settlements
        WHERE payment_id = $1
        FOR UPDATE
    `
	var s domain.Settlement
	err := r.db.QueryRow(ctx, query, paymentID).Scan(
		&s.ID, &s.PaymentID, &s.UserID, &s.PaidAmount, &s.CreditsGranted, &s.NewBalance, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to lock settlement", zap.Error(err))
		return nil, err
	}
	return &s, nil
}

// Complete records the outcome against the reservation.
func (r *Repository) Complete(ctx context.Context, paymentID string, creditsGranted, newBalance int64, status string) error {
	query := `
        UPDATE settlements
        SET credits_granted = $2, new_balance = $3, status = $4, updated_at = now()
        WHERE payment_id = $1
    `
	if _, err := r.db.Exec(ctx, query, paymentID, creditsGranted, newBalance, status); err != nil {
		zap.L().Error("failed to complete settlement", zap.Error(err))
		return err
	}
	return nil
}

// FindPending returns settlements still awaiting confirmation, oldest first.
func (r *Repository) FindPending(ctx context.Context, limit uint32) ([]domain.Settlement, error) {
	query := `
        SELECT id, payment_id, user_id, paid_amount, credits_granted, new_balance, status, created_at, updated_at
        FROM settlements
        WHERE status = 'pending'
        ORDER BY created_at ASC
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, int(limit))
	if err != nil {
		zap.L().Error("failed to find pending settlements", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var settlements []domain.Settlement
	for rows.Next() {
		var s domain.Settlement
		err := rows.Scan(&s.ID, &s.PaymentID, &s.UserID, &s.PaidAmount, &s.CreditsGranted, &s.NewBalance, &s.Status, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			zap.L().Error("failed to scan settlement row", zap.Error(err))
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, nil
}
