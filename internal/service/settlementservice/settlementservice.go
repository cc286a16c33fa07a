package settlementservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/metrics"
	"github.com/wareqa/creditledger/internal/pg"
	"github.com/wareqa/creditledger/internal/service/ledgerservice"
	"go.uber.org/zap"
)

const (
	maxRetries    = 3
	retryInterval = time.Millisecond * 200
)

// Pricing fallback policies for amounts without an explicit rule.
const (
	PolicyOneToOne = "one_to_one"
	PolicyReject   = "reject"
)

type SettlementRepo interface {
	Reserve(ctx context.Context, paymentID, userID string, paidAmount int64) (*domain.Settlement, bool, error)
	Get(ctx context.Context, paymentID string) (*domain.Settlement, error)
	LockByPaymentID(ctx context.Context, paymentID string) (*domain.Settlement, error)
	Complete(ctx context.Context, paymentID string, creditsGranted, newBalance int64, status string) error
	FindPending(ctx context.Context, limit uint32) ([]domain.Settlement, error)
}

type PricingRepo interface {
	GetByAmount(ctx context.Context, amount int64) (*domain.PricingRule, error)
	Upsert(ctx context.Context, amount, credits int64) (*domain.PricingRule, error)
	Delete(ctx context.Context, amount int64) error
	List(ctx context.Context) ([]domain.PricingRule, error)
}

type Service struct {
	settlementRepo SettlementRepo
	pricingRepo    PricingRepo
	accountRepo    ledgerservice.AccountRepo
	entryRepo      ledgerservice.EntryRepo
	txManager      pg.TXManager
	notifier       ledgerservice.Notifier
	defaultPolicy  string
}

func New(settlementRepo SettlementRepo, pricingRepo PricingRepo, accountRepo ledgerservice.AccountRepo, entryRepo ledgerservice.EntryRepo, txManager pg.TXManager, notifier ledgerservice.Notifier, defaultPolicy string) *Service {
	return &Service{
		settlementRepo: settlementRepo,
		pricingRepo:    pricingRepo,
		accountRepo:    accountRepo,
		entryRepo:      entryRepo,
		txManager:      txManager,
		notifier:       notifier,
		defaultPolicy:  defaultPolicy,
	}
}

// SettlePayment converts one confirmed payment into at most one credit
// grant. It is the single settlement path: the client confirmation flow,
// the gateway webhook and the reconciler all call it with the same payment
// id and converge on the same settlement record. The returned flag is true
// when the payment had already been settled and the stored result is being
// replayed.
func (s *Service) SettlePayment(ctx context.Context, paymentID, userID string, paidAmount int64, paid bool) (*domain.Settlement, bool, error) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		settlement, replay, err := s.settleOnce(ctx, paymentID, userID, paidAmount, paid)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			zap.L().Warn("settlement conflict, retrying",
				zap.String("paymentID", paymentID),
				zap.Int("attempt", attempt),
			)
			time.Sleep(retryInterval * time.Duration(attempt))
			continue
		}
		if err != nil {
			metrics.Settlements.WithLabelValues("error").Inc()
			return nil, false, err
		}
		if replay {
			metrics.Settlements.WithLabelValues("already_processed").Inc()
		} else {
			metrics.Settlements.WithLabelValues(settlement.Status).Inc()
		}
		return settlement, replay, nil
	}

	metrics.Settlements.WithLabelValues("error").Inc()
	return nil, false, fmt.Errorf("%w: retries exhausted for payment %s", domain.ErrSettlementFailed, paymentID)
}

func (s *Service) settleOnce(ctx context.Context, paymentID, userID string, paidAmount int64, paid bool) (*domain.Settlement, bool, error) {
	var result *domain.Settlement
	var replay bool

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		settlement, fresh, err := s.settlementRepo.Reserve(ctx, paymentID, userID, paidAmount)
		if err != nil {
			return err
		}
		if !fresh {
			// A record exists: lock it so concurrent settlers serialize,
			// then re-read the status the winner left behind.
			locked, err := s.settlementRepo.LockByPaymentID(ctx, paymentID)
			if err != nil {
				return err
			}
			if locked == nil {
				return domain.ErrConcurrencyConflict
			}
			if locked.Status != domain.SettlementPending {
				result = locked
				replay = true
				return nil
			}
			// Pending record from an earlier initiation: settle it now,
			// trusting the identity and amount captured at creation.
			settlement = locked
		}

		if !paid {
			if err := s.settlementRepo.Complete(ctx, paymentID, 0, 0, domain.SettlementFailed); err != nil {
				return err
			}
			settlement.CreditsGranted = 0
			settlement.Status = domain.SettlementFailed
			result = settlement
			return nil
		}

		credits, err := s.resolveCredits(ctx, settlement.PaidAmount)
		if err != nil {
			return err
		}
		if err := s.accountRepo.EnsureAccount(ctx, settlement.UserID); err != nil {
			return err
		}
		newBalance, err := s.accountRepo.ApplyDelta(ctx, settlement.UserID, credits)
		if err != nil {
			return err
		}

		entry := &domain.LedgerEntry{
			ToUserID:    &settlement.UserID,
			Amount:      credits,
			Kind:        domain.KindPaymentCredit,
			ExternalRef: &settlement.PaymentID,
		}
		if err := s.entryRepo.Insert(ctx, entry); err != nil {
			return err
		}
		if err := s.settlementRepo.Complete(ctx, paymentID, credits, newBalance, domain.SettlementProcessed); err != nil {
			return err
		}

		settlement.CreditsGranted = credits
		settlement.NewBalance = newBalance
		settlement.Status = domain.SettlementProcessed
		result = settlement
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPricing) || errors.Is(err, domain.ErrConcurrencyConflict) {
			return nil, false, err
		}
		zap.L().Error("settlement failed",
			zap.String("paymentID", paymentID),
			zap.String("userID", userID),
			zap.Error(err),
		)
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
	}

	if !replay && result.Status == domain.SettlementProcessed {
		s.notifier.CreditsChanged(ctx, result.UserID, result.NewBalance)
	}
	return result, replay, nil
}

// resolveCredits maps a paid amount to granted credits through the pricing
// table. Unlisted amounts follow the configured default policy; the 1:1
// fallback is an explicit choice, not an assumption.
func (s *Service) resolveCredits(ctx context.Context, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	rule, err := s.pricingRepo.GetByAmount(ctx, amount)
	if err != nil {
		return 0, err
	}
	if rule != nil {
		return rule.Credits, nil
	}
	if s.defaultPolicy == PolicyOneToOne {
		return amount, nil
	}
	return 0, domain.ErrUnknownPricing
}

// RecordInitiated remembers a payment the gateway has accepted but not yet
// confirmed, so the reconciler can chase it. Replays are no-ops.
func (s *Service) RecordInitiated(ctx context.Context, paymentID, userID string, paidAmount int64) (*domain.Settlement, error) {
	settlement, _, err := s.settlementRepo.Reserve(ctx, paymentID, userID, paidAmount)
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// PendingSettlements feeds the reconciler with payments awaiting a verdict.
func (s *Service) PendingSettlements(ctx context.Context, limit uint32) ([]domain.Settlement, error) {
	return s.settlementRepo.FindPending(ctx, limit)
}

func (s *Service) ListPricing(ctx context.Context) ([]domain.PricingRule, error) {
	return s.pricingRepo.List(ctx)
}

func (s *Service) UpsertPricing(ctx context.Context, amount, credits int64) (*domain.PricingRule, error) {
	if amount <= 0 || credits <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	return s.pricingRepo.Upsert(ctx, amount, credits)
}

func (s *Service) DeletePricing(ctx context.Context, amount int64) error {
	return s.pricingRepo.Delete(ctx, amount)
}
