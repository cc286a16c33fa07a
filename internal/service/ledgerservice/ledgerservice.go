package ledgerservice

import (
	"context"
	"strconv"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/metrics"
	"github.com/wareqa/creditledger/internal/pg"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AccountRepo is the only surface through which balances are read or
// mutated. LockForUpdate and ApplyDelta are expected to run inside a
// TXManager transaction.
type AccountRepo interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	EnsureAccount(ctx context.Context, userID string) error
	LockForUpdate(ctx context.Context, userID string) (*domain.Account, error)
	ApplyDelta(ctx context.Context, userID string, delta int64) (int64, error)
}

type EntryRepo interface {
	Insert(ctx context.Context, entry *domain.LedgerEntry) error
	ListByUser(ctx context.Context, userID string, kind string, beforeID int64, limit int) ([]domain.LedgerEntry, error)
}

// Notifier pushes best-effort creditsChanged events to subscribers. It must
// never fail the operation that triggered it.
type Notifier interface {
	CreditsChanged(ctx context.Context, userID string, newBalance int64)
}

type Service struct {
	accountRepo AccountRepo
	entryRepo   EntryRepo
	txManager   pg.TXManager
	notifier    Notifier
}

func New(accountRepo AccountRepo, entryRepo EntryRepo, txManager pg.TXManager, notifier Notifier) *Service {
	return &Service{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// GetBalance returns the canonical balance. An account that has never
// earned a credit reads as 0.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	balance, err := s.accountRepo.GetBalance(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get balance", zap.Error(err))
		return 0, err
	}
	return balance, nil
}

// CreateAccount provisions an empty account row. Registration calls this so
// new users see a balance immediately; every credit path also auto-creates.
func (s *Service) CreateAccount(ctx context.Context, userID string) error {
	if err := s.accountRepo.EnsureAccount(ctx, userID); err != nil {
		zap.L().Error("failed to create account", zap.Error(err))
		return err
	}
	return nil
}

// Spend debits amount credits against a research generation. The sufficiency
// check and the debit commit as one unit with the spend entry.
func (s *Service) Spend(ctx context.Context, userID string, amount int64, note string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var newBalance int64
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrAccountNotFound
		}
		if account.Balance < amount {
			return domain.ErrInsufficientFunds
		}

		newBalance, err = s.accountRepo.ApplyDelta(ctx, userID, -amount)
		if err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			FromUserID: &userID,
			Amount:     amount,
			Kind:       domain.KindSpend,
			Note:       note,
		}
		return s.entryRepo.Insert(ctx, entry)
	})
	if err != nil {
		zap.L().Error("spend failed", zap.String("userID", userID), zap.Int64("amount", amount), zap.Error(err))
		return 0, err
	}

	metrics.Spends.Inc()
	s.notifier.CreditsChanged(ctx, userID, newBalance)
	return newBalance, nil
}

// ListEntries pages through the user's history, newest first. pageToken is
// the id of the last entry from the previous page; empty starts from the
// top. The returned token is empty on the final page.
func (s *Service) ListEntries(ctx context.Context, userID string, kind string, pageToken string, limit int) ([]domain.LedgerEntry, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var beforeID int64
	if pageToken != "" {
		parsed, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, "", domain.ErrInvalidPageToken
		}
		beforeID = parsed
	}

	entries, err := s.entryRepo.ListByUser(ctx, userID, kind, beforeID, limit)
	if err != nil {
		zap.L().Error("failed to list entries", zap.Error(err))
		return nil, "", err
	}

	nextToken := ""
	if len(entries) == limit {
		nextToken = strconv.FormatInt(entries[len(entries)-1].ID, 10)
	}
	return entries, nextToken, nil
}
