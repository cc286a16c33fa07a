package grantservice

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

const minUnit = 100

func NewMock(t *testing.T) (*Service, *ledgerservice.MockAccountRepo, *ledgerservice.MockEntryRepo, *ledgerservice.MockNotifier, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	accountRepo := ledgerservice.NewMockAccountRepo(ctrl)
	entryRepo := ledgerservice.NewMockEntryRepo(ctrl)
	notifier := ledgerservice.NewMockNotifier(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	service := New(accountRepo, entryRepo, txManager, notifier, minUnit)
	defer ctrl.Finish()
	return service, accountRepo, entryRepo, notifier, txManager
}

func passThroughTx(txManager *pg.MockTXManager) {
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func TestGrant(t *testing.T) {
	adminID := "019b5e2d-3c50-4e11-8b2e-111111111111"
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	tests := []struct {
		name            string
		amount          int64
		prepareMock     func(accountRepo *ledgerservice.MockAccountRepo, entryRepo *ledgerservice.MockEntryRepo, notifier *ledgerservice.MockNotifier, txManager *pg.MockTXManager)
		expectedBalance int64
		expectedError   error
	}{
		{
			name:   "Gift credits the user and records the acting admin",
			amount: 300,
			prepareMock: func(accountRepo *ledgerservice.MockAccountRepo, entryRepo *ledgerservice.MockEntryRepo, notifier *ledgerservice.MockNotifier, txManager *pg.MockTXManager) {
				passThroughTx(txManager)
				accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(nil)
				accountRepo.EXPECT().ApplyDelta(gomock.Any(), userID, int64(300)).Return(int64(800), nil)
				entryRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, entry *domain.LedgerEntry) error {
						assert.Equal(t, domain.KindAdminGift, entry.Kind)
						assert.Equal(t, adminID, *entry.FromUserID)
						assert.Equal(t, userID, *entry.ToUserID)
						return nil
					},
				)
				notifier.EXPECT().CreditsChanged(gomock.Any(), userID, int64(800))
			},
			expectedBalance: 800,
		},
		{
			name:          "Gift must be a multiple of the gift unit",
			amount:        150,
			prepareMock:   func(_ *ledgerservice.MockAccountRepo, _ *ledgerservice.MockEntryRepo, _ *ledgerservice.MockNotifier, _ *pg.MockTXManager) {},
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:          "Zero gift rejected",
			amount:        0,
			prepareMock:   func(_ *ledgerservice.MockAccountRepo, _ *ledgerservice.MockEntryRepo, _ *ledgerservice.MockNotifier, _ *pg.MockTXManager) {},
			expectedError: domain.ErrInvalidAmount,
		},
		{
			name:   "Store failure leaves no grant",
			amount: 300,
			prepareMock: func(accountRepo *ledgerservice.MockAccountRepo, _ *ledgerservice.MockEntryRepo, _ *ledgerservice.MockNotifier, txManager *pg.MockTXManager) {
				passThroughTx(txManager)
				accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(errors.New("db down"))
			},
			expectedError: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, accountRepo, entryRepo, notifier, txManager := NewMock(t)
			tt.prepareMock(accountRepo, entryRepo, notifier, txManager)

			balance, err := service.Grant(context.Background(), adminID, userID, tt.amount)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedBalance, balance)
			}
		})
	}
}

func TestRefund(t *testing.T) {
	adminID := "019b5e2d-3c50-4e11-8b2e-111111111111"
	userID := "a81bc81b-dead-4e5d-abff-90865d1e13b1"

	tests := []struct {
		name            string
		amount          int64
		prepareMock     func(accountRepo *ledgerservice.MockAccountRepo, entryRepo *ledgerservice.MockEntryRepo, notifier *ledgerservice.MockNotifier, txManager *pg.MockTXManager)
		expectedBalance int64
		expectedError   error
	}{
		{
			name:   "Refund is not bound to the gift unit",
			amount: 10,
			prepareMock: func(accountRepo *ledgerservice.MockAccountRepo, entryRepo *ledgerservice.MockEntryRepo, notifier *ledgerservice.MockNotifier, txManager *pg.MockTXManager) {
				passThroughTx(txManager)
				accountRepo.EXPECT().EnsureAccount(gomock.Any(), userID).Return(nil)
				accountRepo.EXPECT().ApplyDelta(gomock.Any(), userID, int64(10)).Return(int64(510), nil)
				entryRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, entry *domain.LedgerEntry) error {
						assert.Equal(t, domain.KindRefund, entry.Kind)
						assert.Equal(t, "failed research", entry.Note)
						return nil
					},
				)
				notifier.EXPECT().CreditsChanged(gomock.Any(), userID, int64(510))
			},
			expectedBalance: 510,
		},
		{
			name:          "Negative refund rejected",
			amount:        -10,
			prepareMock:   func(_ *ledgerservice.MockAccountRepo, _ *ledgerservice.MockEntryRepo, _ *ledgerservice.MockNotifier, _ *pg.MockTXManager) {},
			expectedError: domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, accountRepo, entryRepo, notifier, txManager := NewMock(t)
			tt.prepareMock(accountRepo, entryRepo, notifier, txManager)

			balance, err := service.Refund(context.Background(), adminID, userID, tt.amount, "failed research")
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedBalance, balance)
			}
		})
	}
}
