package entryrepo

import (
	"context"

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

// Insert appends one ledger entry. Entries are never updated or deleted.
func (r *Repository) Insert(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
        INSERT INTO ledger_entries (from_user_id, to_user_id, amount, kind, external_ref, note)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		entry.FromUserID, entry.ToUserID, entry.Amount, entry.Kind, entry.ExternalRef, entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		zap.L().Error("failed to insert ledger entry", zap.Error(err))
		return err
	}
	return nil
}

// ListByUser returns entries touching the user, newest first, keyset-paged:
// beforeID = 0 starts from the newest entry, otherwise only entries with a
// smaller id are returned. An empty kind matches all kinds. Sort key and
// cursor are both the bigserial id, so no entry can fall between pages.
func (r *Repository) ListByUser(ctx context.Context, userID string, kind string, beforeID int64, limit int) ([]domain.LedgerEntry, error) {
	query := `
        SELECT id, from_user_id, to_user_id, amount, kind, external_ref, note, created_at
        FROM ledger_entries
        WHERE (from_user_id = $1 OR to_user_id = $1)
          AND ($2 = '' OR kind = $2)
          AND ($3::BIGINT = 0 OR id < $3)
        ORDER BY id DESC
        LIMIT $4
    `
	rows, err := r.db.Query(ctx, query, userID, kind, beforeID, limit)
	if err != nil {
		zap.L().Error("failed to list ledger entries", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		err := rows.Scan(&entry.ID, &entry.FromUserID, &entry.ToUserID, &entry.Amount, &entry.Kind, &entry.ExternalRef, &entry.Note, &entry.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan ledger entry row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
