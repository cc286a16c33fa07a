package settlementservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/wareqa/creditledger/internal/domain"
	"github.com/wareqa/creditledger/internal/pg"
	"github.com/wareqa/creditledger/internal/service/ledgerservice"
)

type mocks struct {
	settlementRepo *MockSettlementRepo
	pricingRepo    *MockPricingRepo
	accountRepo    *ledgerservice.MockAccountRepo
	entryRepo      *ledgerservice.MockEntryRepo
	notifier       *ledgerservice.MockNotifier
	txManager      *pg.MockTXManager
}

func NewMock(t *testing.T, defaultPolicy string) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		settlementRepo: NewMockSettlementRepo(ctrl),
		pricingRepo:    NewMockPricingRepo(ctrl),
		accountRepo:    ledgerservice.NewMockAccountRepo(ctrl),
		entryRepo:      ledgerservice.NewMockEntryRepo(ctrl),
		notifier:       ledgerservice.NewMockNotifier(ctrl),
		txManager:      pg.NewMockTXManager(ctrl),
	}
	service := New(m.settlementRepo, m.pricingRepo, m.accountRepo, m.entryRepo, m.txManager, m.notifier, defaultPolicy)
	defer ctrl.Finish()
	return service, m
}

func passThroughTx(txManager *pg.MockTXManager) {
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func pendingSettlement(paymentID, userID string, paidAmount int64) *domain.Settlement {
	return &domain.Settlement{
		ID:         1,
		PaymentID:  paymentID,
		UserID:     userID,
		PaidAmount: paidAmount,
		Status:     domain.SettlementPending,
	}
}

func TestSettlePayment(t *testing.T) {
	paymentID := "pay_01HZX2Y3"
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	tests := []struct {
		name            string
		paidAmount      int64
		paid            bool
		policy          string
		prepareMock     func(m *mocks)
		expectedReplay  bool
		expectedCredits int64
		expectedStatus  string
		expectedError   error
	}{
		{
			name:       "Paid amount with a pricing tier grants tier credits",
			paidAmount: 30,
			paid:       true,
			policy:     PolicyOneToOne,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(30)).
					Return(pendingSettlement(paymentID, userID, 30), true, nil)
				m.pricingRepo.EXPECT().GetByAmount(gomock.Any(), int64(30)).
					Return(&domain.PricingRule{Amount: 30, Credits: 40}, nil)
				m.accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(nil)
				m.accountRepo.EXPECT().ApplyDelta(gomock.Any(), userID, int64(40)).Return(int64(540), nil)
				m.entryRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, entry *domain.LedgerEntry) error {
						assert.Equal(t, domain.KindPaymentCredit, entry.Kind)
						assert.Equal(t, paymentID, *entry.ExternalRef)
						assert.Equal(t, int64(40), entry.Amount)
						return nil
					},
				)
				m.settlementRepo.EXPECT().Complete(gomock.Any(), paymentID, int64(40), int64(540), domain.SettlementProcessed).Return(nil)
				m.notifier.EXPECT().CreditsChanged(gomock.Any(), userID, int64(540))
			},
			expectedCredits: 40,
			expectedStatus:  domain.SettlementProcessed,
		},
		{
			name:       "Unlisted amount falls back one to one",
			paidAmount: 37,
			paid:       true,
			policy:     PolicyOneToOne,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(37)).
					Return(pendingSettlement(paymentID, userID, 37), true, nil)
				m.pricingRepo.EXPECT().GetByAmount(gomock.Any(), int64(37)).Return(nil, nil)
				m.accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(nil)
				m.accountRepo.EXPECT().ApplyDelta(gomock.Any(), userID, int64(37)).Return(int64(37), nil)
				m.entryRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
				m.settlementRepo.EXPECT().Complete(gomock.Any(), paymentID, int64(37), int64(37), domain.SettlementProcessed).Return(nil)
				m.notifier.EXPECT().CreditsChanged(gomock.Any(), userID, int64(37))
			},
			expectedCredits: 37,
			expectedStatus:  domain.SettlementProcessed,
		},
		{
			name:       "Reject policy refuses unlisted amounts",
			paidAmount: 37,
			paid:       true,
			policy:     PolicyReject,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(37)).
					Return(pendingSettlement(paymentID, userID, 37), true, nil)
				m.pricingRepo.EXPECT().GetByAmount(gomock.Any(), int64(37)).Return(nil, nil)
			},
			expectedError: domain.ErrUnknownPricing,
		},
		{
			name:       "Failed payment records a failed settlement without credits",
			paidAmount: 30,
			paid:       false,
			policy:     PolicyOneToOne,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(30)).
					Return(pendingSettlement(paymentID, userID, 30), true, nil)
				m.settlementRepo.EXPECT().Complete(gomock.Any(), paymentID, int64(0), int64(0), domain.SettlementFailed).Return(nil)
			},
			expectedCredits: 0,
			expectedStatus:  domain.SettlementFailed,
		},
		{
			name:       "Replay returns the stored settlement without touching balances",
			paidAmount: 30,
			paid:       true,
			policy:     PolicyOneToOne,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(30)).
					Return(&domain.Settlement{PaymentID: paymentID, UserID: userID, PaidAmount: 30, Status: domain.SettlementProcessed}, false, nil)
				m.settlementRepo.EXPECT().LockByPaymentID(gomock.Any(), paymentID).
					Return(&domain.Settlement{
						PaymentID:      paymentID,
						UserID:         userID,
						PaidAmount:     30,
						CreditsGranted: 40,
						NewBalance:     540,
						Status:         domain.SettlementProcessed,
					}, nil)
			},
			expectedReplay:  true,
			expectedCredits: 40,
			expectedStatus:  domain.SettlementProcessed,
		},
		{
			name:       "Pending reservation from an earlier initiation is settled with stored values",
			paidAmount: 999,
			paid:       true,
			policy:     PolicyOneToOne,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				// Stored amount (30) wins over the caller's amount (999).
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(999)).
					Return(pendingSettlement(paymentID, userID, 30), false, nil)
				m.settlementRepo.EXPECT().LockByPaymentID(gomock.Any(), paymentID).
					Return(pendingSettlement(paymentID, userID, 30), nil)
				m.pricingRepo.EXPECT().GetByAmount(gomock.Any(), int64(30)).
					Return(&domain.PricingRule{Amount: 30, Credits: 40}, nil)
				m.accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(nil)
				m.accountRepo.EXPECT().ApplyDelta(gomock.Any(), userID, int64(40)).Return(int64(40), nil)
				m.entryRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
				m.settlementRepo.EXPECT().Complete(gomock.Any(), paymentID, int64(40), int64(40), domain.SettlementProcessed).Return(nil)
				m.notifier.EXPECT().CreditsChanged(gomock.Any(), userID, int64(40))
			},
			expectedCredits: 40,
			expectedStatus:  domain.SettlementProcessed,
		},
		{
			name:       "Store failure wraps into a settlement error",
			paidAmount: 30,
			paid:       true,
			policy:     PolicyOneToOne,
			prepareMock: func(m *mocks) {
				passThroughTx(m.txManager)
				m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(30)).
					Return(nil, false, errors.New("db down"))
			},
			expectedError: domain.ErrSettlementFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, tt.policy)
			tt.prepareMock(m)

			settlement, replay, err := service.SettlePayment(context.Background(), paymentID, userID, tt.paidAmount, tt.paid)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedReplay, replay)
				assert.Equal(t, tt.expectedCredits, settlement.CreditsGranted)
				assert.Equal(t, tt.expectedStatus, settlement.Status)
			}
		})
	}
}

func TestSettlePayment_RetriesConflict(t *testing.T) {
	paymentID := "pay_01HZX2Y3"
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	service, m := NewMock(t, PolicyOneToOne)

	// First attempt hits a reservation race, second succeeds.
	first := m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	second := m.txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	gomock.InOrder(first, second)

	gomock.InOrder(
		m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(10)).
			Return(nil, false, domain.ErrConcurrencyConflict),
		m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(10)).
			Return(pendingSettlement(paymentID, userID, 10), true, nil),
	)
	m.pricingRepo.EXPECT().GetByAmount(gomock.Any(), int64(10)).
		Return(&domain.PricingRule{Amount: 10, Credits: 10}, nil)
	m.accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(nil)
	m.accountRepo.EXPECT().ApplyDelta(gomock.Any(), userID, int64(10)).Return(int64(10), nil)
	m.entryRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	m.settlementRepo.EXPECT().Complete(gomock.Any(), paymentID, int64(10), int64(10), domain.SettlementProcessed).Return(nil)
	m.notifier.EXPECT().CreditsChanged(gomock.Any(), userID, int64(10))

	settlement, replay, err := service.SettlePayment(context.Background(), paymentID, userID, 10, true)
	assert.NoError(t, err)
	assert.False(t, replay)
	assert.Equal(t, int64(10), settlement.CreditsGranted)
}

func TestRecordInitiated(t *testing.T) {
	paymentID := "pay_01HZX2Y3"
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	service, m := NewMock(t, PolicyOneToOne)
	m.settlementRepo.EXPECT().Reserve(gomock.Any(), paymentID, userID, int64(30)).
		Return(pendingSettlement(paymentID, userID, 30), true, nil)

	settlement, err := service.RecordInitiated(context.Background(), paymentID, userID, 30)
	assert.NoError(t, err)
	assert.Equal(t, domain.SettlementPending, settlement.Status)
}

func TestUpsertPricing(t *testing.T) {
	tests := []struct {
		name          string
		amount        int64
		credits       int64
		prepareMock   func(m *mocks)
		expectedError error
	}{
		{
			name:    "Valid rule is stored",
			amount:  30,
			credits: 45,
			prepareMock: func(m *mocks) {
				m.pricingRepo.EXPECT().Upsert(gomock.Any(), int64(30), int64(45)).
					Return(&domain.PricingRule{Amount: 30, Credits: 45}, nil)
			},
		},
		{
			name:          "Zero credits rejected",
			amount:        30,
			credits:       0,
			prepareMock:   func(_ *mocks) {},
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:          "Negative amount rejected",
			amount:        -5,
			credits:       10,
			prepareMock:   func(_ *mocks) {},
			expectedError: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, m := NewMock(t, PolicyOneToOne)
			tt.prepareMock(m)

			rule, err := service.UpsertPricing(context.Background(), tt.amount, tt.credits)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.credits, rule.Credits)
			}
		})
	}
}
