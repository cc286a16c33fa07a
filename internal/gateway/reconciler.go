package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wareqa/creditledger/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxRetries    = 3
	retryInterval = time.Second * 1
)

var processingPayments sync.Map

// Settler is the settlement surface the reconciler drives. It is the same
// SettlePayment path the confirm handler and the webhook use.
type Settler interface {
	SettlePayment(ctx context.Context, paymentID, userID string, paidAmount int64, paid bool) (*domain.Settlement, bool, error)
	PendingSettlements(ctx context.Context, limit uint32) ([]domain.Settlement, error)
}

// Reconciler chases settlements stuck in pending: payments whose webhook
// never arrived or whose confirming client timed out. It re-queries the
// gateway and drives each verdict through the normal settlement path, so a
// caller that gave up waiting still converges on the committed outcome.
type Reconciler struct {
	settler        Settler
	client         PaymentFetcher
	limit          uint32
	workerPool     WorkerPoolI
	updateInterval time.Duration
}

type PaymentFetcher interface {
	FetchPayment(paymentID string) (*Payment, error)
}

func NewReconciler(settler Settler, client PaymentFetcher) *Reconciler {
	return &Reconciler{
		settler:        settler,
		client:         client,
		limit:          1000,
		workerPool:     NewWorkerPool(10),
		updateInterval: time.Second * 30,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	zap.L().Info("Settlement reconciler started")
	go r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	ticker := time.NewTicker(r.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping reconciler")
			return
		case <-ticker.C:
			r.processPending(ctx)
		}
	}
}

func (r *Reconciler) processPending(ctx context.Context) {
	settlements, err := r.settler.PendingSettlements(ctx, atomic.LoadUint32(&r.limit))
	if err != nil {
		zap.L().Error("Failed to fetch pending settlements", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, settlement := range settlements {
		settlement := settlement

		if _, loaded := processingPayments.LoadOrStore(settlement.PaymentID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := r.workerPool.AddTask(ctx, func() error {
				defer processingPayments.Delete(settlement.PaymentID)
				return r.handleSettlement(ctx, settlement)
			})
			if err != nil {
				processingPayments.Delete(settlement.PaymentID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error reconciling settlements", zap.Error(err))
	}
}

func (r *Reconciler) handleSettlement(ctx context.Context, settlement domain.Settlement) error {
	var payment *Payment
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			payment, err = r.client.FetchPayment(settlement.PaymentID)
			if err == nil {
				return r.applyVerdict(ctx, settlement, payment)
			}
			if errors.Is(err, ErrPaymentNotFound) {
				// Initiated checkouts may not be queryable yet.
				zap.L().Warn("Payment not found at gateway, will retry later",
					zap.String("paymentID", settlement.PaymentID),
				)
				return nil
			}
			var rateLimit *RateLimitError
			if errors.As(err, &rateLimit) {
				zap.L().Warn("Rate limit detected, retrying",
					zap.String("paymentID", settlement.PaymentID),
					zap.Int("attempt", attempt),
					zap.Duration("retryAfter", rateLimit.RetryAfter),
				)
				time.Sleep(rateLimit.RetryAfter)
				continue
			}
			if attempt < maxRetries {
				time.Sleep(retryInterval * time.Duration(attempt))
				continue
			}
			return fmt.Errorf("failed to fetch payment %s after %d retries: %w", settlement.PaymentID, maxRetries, err)
		}
	}
	return nil
}

func (r *Reconciler) applyVerdict(ctx context.Context, settlement domain.Settlement, payment *Payment) error {
	switch payment.Status {
	case StatusPaid:
		if _, _, err := r.settler.SettlePayment(ctx, settlement.PaymentID, settlement.UserID, payment.AmountUnits(), true); err != nil {
			return fmt.Errorf("failed to settle payment %s: %w", settlement.PaymentID, err)
		}
	case StatusFailed:
		if _, _, err := r.settler.SettlePayment(ctx, settlement.PaymentID, settlement.UserID, payment.AmountUnits(), false); err != nil {
			return fmt.Errorf("failed to record failed payment %s: %w", settlement.PaymentID, err)
		}
	case StatusInitiated, StatusAuthorized:
		zap.L().Info("Payment still in flight, no verdict yet",
			zap.String("paymentID", settlement.PaymentID),
			zap.String("status", payment.Status),
		)
	default:
		zap.L().Warn("Unrecognized payment status",
			zap.String("paymentID", settlement.PaymentID),
			zap.String("status", payment.Status),
		)
	}
	return nil
}
