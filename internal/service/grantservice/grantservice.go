package grantservice

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

// Grant issues amount credits to a user without a matching payment. The
// caller's authorization has already been established by the admin
// middleware; the ledger only records who acted.
func (s *Service) Grant(ctx context.Context, adminID, userID string, amount int64) (int64, error) {
	if amount <= 0 || amount%s.minUnit != 0 {
		return 0, domain.ErrInvalidAmount
	}
	newBalance, err := s.credit(ctx, adminID, userID, amount, domain.KindAdminGift, "")
	if err != nil {
		zap.L().Error("grant failed", zap.String("userID", userID), zap.Int64("amount", amount), zap.Error(err))
		return 0, err
	}
	metrics.Grants.WithLabelValues(string(domain.KindAdminGift)).Inc()
	return newBalance, nil
}

// Refund restores credits consumed by a failed research. Unlike gifts a
// refund is not bound to the minimum unit, since research costs are not.
func (s *Service) Refund(ctx context.Context, adminID, userID string, amount int64, note string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	newBalance, err := s.credit(ctx, adminID, userID, amount, domain.KindRefund, note)
	if err != nil {
		zap.L().Error("refund failed", zap.String("userID", userID), zap.Int64("amount", amount), zap.Error(err))
		return 0, err
	}
	metrics.Grants.WithLabelValues(string(domain.KindRefund)).Inc()
	return newBalance, nil
}

func (s *Service) credit(ctx context.Context, adminID, userID string, amount int64, kind domain.EntryKind, note string) (int64, error) {
	var newBalance int64
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.accountRepo.EnsureAccount(ctx, userID); err != nil {
			return err
		}
		var err error
		if newBalance, err = s.accountRepo.ApplyDelta(ctx, userID, amount); err != nil {
			return err
		}
		entry := &domain.LedgerEntry{
			FromUserID: &adminID,
			ToUserID:   &userID,
			Amount:     amount,
			Kind:       kind,
			Note:       note,
		}
		return s.entryRepo.Insert(ctx, entry)
	})
	if err != nil {
		return 0, err
	}
	s.notifier.CreditsChanged(ctx, userID, newBalance)
	return newBalance, nil
}
