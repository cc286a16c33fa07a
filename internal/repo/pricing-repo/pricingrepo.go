package pricingrepo

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

// GetByAmount returns the rule for an exact payment amount, or nil when no
// rule exists and the caller should apply the default policy.
func (r *Repository) GetByAmount(ctx context.Context, amount int64) (*domain.PricingRule, error) {
	query := `
        SELECT amount, credits, updated_at
        FROM pricing_rules
        WHERE amount = $1
    `
	var rule domain.PricingRule
	err := r.db.QueryRow(ctx, query, amount).Scan(&rule.Amount, &rule.Credits, &rule.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("failed to get pricing rule", zap.Error(err))
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) Upsert(ctx context.Context, amount, credits int64) (*domain.PricingRule, error) {
	query := `
        INSERT INTO pricing_rules (amount, credits)
        VALUES ($1, $2)
        ON CONFLICT (amount) DO UPDATE SET credits = EXCLUDED.credits, updated_at = now()
        RETURNING amount, credits, updated_at
    `
	var rule domain.PricingRule
	err := r.db.QueryRow(ctx, query, amount, credits).Scan(&rule.Amount, &rule.Credits, &rule.UpdatedAt)
	if err != nil {
		zap.L().Error("failed to upsert pricing rule", zap.Error(err))
		return nil, err
	}
	return &rule, nil
}

func (r *Repository) Delete(ctx context.Context, amount int64) error {
	query := `
        DELETE FROM pricing_rules
        WHERE amount = $1
    `
	if _, err := r.db.Exec(ctx, query, amount); err != nil {
		zap.L().Error("failed to delete pricing rule", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]domain.PricingRule, error) {
	query := `
        SELECT amount, credits, updated_at
        FROM pricing_rules
        ORDER BY amount ASC
    `
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		zap.L().Error("failed to list pricing rules", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var rules []domain.PricingRule
	for rows.Next() {
		var rule domain.PricingRule
		if err := rows.Scan(&rule.Amount, &rule.Credits, &rule.UpdatedAt); err != nil {
			zap.L().Error("failed to scan pricing rule row", zap.Error(err))
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
