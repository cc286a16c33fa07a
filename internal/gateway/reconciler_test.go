package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/wareqa/creditledger/internal/domain"
)

func newTestReconciler(t *testing.T) (*Reconciler, *MockSettler, *MockPaymentFetcher) {
	ctrl := gomock.NewController(t)
	settler := NewMockSettler(ctrl)
	fetcher := NewMockPaymentFetcher(ctrl)
	rec := NewReconciler(settler, fetcher)
	return rec, settler, fetcher
}

func paidPayment(id string, amountUnits int64) *Payment {
	p := &Payment{ID: id, Status: StatusPaid, Amount: amountUnits * 100}
	p.Metadata.OriginalAmount = amountUnits
	return p
}

func TestHandleSettlement(t *testing.T) {
	ctx := context.Background()
	settlement := domain.Settlement{
		PaymentID: "pay_rec_01",
		UserID:    "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		Status:    domain.SettlementPending,
	}

	tests := []struct {
		name        string
		prepareMock func(settler *MockSettler, fetcher *MockPaymentFetcher)
		wantErr     bool
	}{
		{
			name: "Paid verdict settles with grant",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).
					Return(paidPayment(settlement.PaymentID, 30), nil)
				settler.EXPECT().
					SettlePayment(ctx, settlement.PaymentID, settlement.UserID, int64(30), true).
					Return(&domain.Settlement{Status: domain.SettlementProcessed}, false, nil)
			},
		},
		{
			name: "Failed verdict records without grant",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				payment := &Payment{ID: settlement.PaymentID, Status: StatusFailed, Amount: 3000}
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).Return(payment, nil)
				settler.EXPECT().
					SettlePayment(ctx, settlement.PaymentID, settlement.UserID, int64(30), false).
					Return(&domain.Settlement{Status: domain.SettlementFailed}, false, nil)
			},
		},
		{
			name: "In-flight payment leaves settlement pending",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				payment := &Payment{ID: settlement.PaymentID, Status: StatusAuthorized}
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).Return(payment, nil)
			},
		},
		{
			name: "Unknown gateway status is skipped",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				payment := &Payment{ID: settlement.PaymentID, Status: "voided"}
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).Return(payment, nil)
			},
		},
		{
			name: "Not-found payment is left for the next cycle",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).Return(nil, ErrPaymentNotFound)
			},
		},
		{
			name: "Rate limit waits and retries",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				gomock.InOrder(
					fetcher.EXPECT().FetchPayment(settlement.PaymentID).
						Return(nil, &RateLimitError{RetryAfter: time.Millisecond}),
					fetcher.EXPECT().FetchPayment(settlement.PaymentID).
						Return(paidPayment(settlement.PaymentID, 30), nil),
				)
				settler.EXPECT().
					SettlePayment(ctx, settlement.PaymentID, settlement.UserID, int64(30), true).
					Return(&domain.Settlement{Status: domain.SettlementProcessed}, false, nil)
			},
		},
		{
			name: "Persistent gateway error exhausts retries",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).
					Return(nil, errors.New("gateway down")).
					Times(maxRetries)
			},
			wantErr: true,
		},
		{
			name: "Settlement error propagates",
			prepareMock: func(settler *MockSettler, fetcher *MockPaymentFetcher) {
				fetcher.EXPECT().FetchPayment(settlement.PaymentID).
					Return(paidPayment(settlement.PaymentID, 30), nil)
				settler.EXPECT().
					SettlePayment(ctx, settlement.PaymentID, settlement.UserID, int64(30), true).
					Return(nil, false, errors.New("db unavailable"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, settler, fetcher := newTestReconciler(t)
			rec.updateInterval = time.Millisecond
			tt.prepareMock(settler, fetcher)

			err := rec.handleSettlement(ctx, settlement)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandleSettlementCanceledContext(t *testing.T) {
	rec, _, _ := newTestReconciler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rec.handleSettlement(ctx, domain.Settlement{PaymentID: "pay_rec_ctx"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("Drives each pending settlement through the gateway", func(t *testing.T) {
		rec, settler, fetcher := newTestReconciler(t)

		ctrl := gomock.NewController(t)
		pool := NewMockWorkerPoolI(ctrl)
		pool.EXPECT().AddTask(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, task Task) error {
				return task()
			}).
			Times(2)
		rec.workerPool = pool

		pending := []domain.Settlement{
			{PaymentID: "pay_pp_01", UserID: "user-1", Status: domain.SettlementPending},
			{PaymentID: "pay_pp_02", UserID: "user-2", Status: domain.SettlementPending},
		}
		settler.EXPECT().PendingSettlements(ctx, uint32(1000)).Return(pending, nil)

		fetcher.EXPECT().FetchPayment("pay_pp_01").Return(paidPayment("pay_pp_01", 10), nil)
		fetcher.EXPECT().FetchPayment("pay_pp_02").
			Return(&Payment{ID: "pay_pp_02", Status: StatusAuthorized}, nil)
		settler.EXPECT().
			SettlePayment(gomock.Any(), "pay_pp_01", "user-1", int64(10), true).
			Return(&domain.Settlement{Status: domain.SettlementProcessed}, false, nil)

		rec.processPending(ctx)
	})

	t.Run("Listing failure aborts the cycle", func(t *testing.T) {
		rec, settler, _ := newTestReconciler(t)
		settler.EXPECT().PendingSettlements(ctx, uint32(1000)).
			Return(nil, errors.New("db unavailable"))

		rec.processPending(ctx)
	})

	t.Run("In-flight payments are not picked up twice", func(t *testing.T) {
		rec, settler, _ := newTestReconciler(t)

		processingPayments.Store("pay_pp_dup", struct{}{})
		t.Cleanup(func() { processingPayments.Delete("pay_pp_dup") })

		pending := []domain.Settlement{
			{PaymentID: "pay_pp_dup", UserID: "user-3", Status: domain.SettlementPending},
		}
		settler.EXPECT().PendingSettlements(ctx, uint32(1000)).Return(pending, nil)

		rec.processPending(ctx)
	})
}
