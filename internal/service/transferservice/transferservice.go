package transferservice

import (
	"context"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/metrics"
	"github.com/wareqa/creditledger/internal/pg"
	"github.com/wareqa/creditledger/internal/service/ledgerservice"
	"go.uber.org/zap"
)

type Service struct {
	accountRepo ledgerservice.AccountRepo
	entryRepo   ledgerservice.EntryRepo
	txManager   pg.TXManager
	notifier    ledgerservice.Notifier
	minUnit     int64
}

func New(accountRepo ledgerservice.AccountRepo, entryRepo ledgerservice.EntryRepo, txManager pg.TXManager, notifier ledgerservice.Notifier, minUnit int64) *Service {
	return &Service{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		txManager:   txManager,
		notifier:    notifier,
		minUnit:     minUnit,
	}
}

// Transfer moves amount credits from one user to another as one atomic unit:
// both balance changes and the transfer entry commit together or not at all.
// The sender must already hold an account; the recipient is created at 0 if
// absent. Both rows are locked in ascending user-id order so two transfers
// touching the same pair cannot deadlock, and the sufficiency check runs
// only after the locks are held.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount int64) (int64, int64, error) {
	if fromID == toID {
		return 0, 0, domain.ErrSelfTransfer
	}
	if amount <= 0 || amount%s.minUnit != 0 {
		return 0, 0, domain.ErrInvalidAmount
	}

	var fromBalance, toBalance int64
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.accountRepo.EnsureAccount(ctx, toID); err != nil {
			return err
		}

		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}
		for _, id := range []string{first, second} {
			account, err := s.accountRepo.LockForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if account == nil {
				if id == fromID {
					return domain.ErrAccountNotFound
				}
				return domain.ErrConcurrencyConflict
			}
			if id == fromID && account.Balance < amount {
				return domain.ErrInsufficientFunds
			}
		}

		var err error
		if fromBalance, err = s.accountRepo.ApplyDelta(ctx, fromID, -amount); err != nil {
			return err
		}
		if toBalance, err = s.accountRepo.ApplyDelta(ctx, toID, amount); err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			FromUserID: &fromID,
			ToUserID:   &toID,
			Amount:     amount,
			Kind:       domain.KindTransfer,
		}
		return s.entryRepo.Insert(ctx, entry)
	})
	if err != nil {
		metrics.Transfers.WithLabelValues("failed").Inc()
		zap.L().Error("transfer failed",
			zap.String("from", fromID),
			zap.String("to", toID),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return 0, 0, err
	}

	metrics.Transfers.WithLabelValues("ok").Inc()
	s.notifier.CreditsChanged(ctx, fromID, fromBalance)
	s.notifier.CreditsChanged(ctx, toID, toBalance)
	return fromBalance, toBalance, nil
}
