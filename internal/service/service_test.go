package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/wareqa/creditledger/internal/config"
	"github.com/wareqa/creditledger/internal/pg"
	"github.com/wareqa/creditledger/internal/repo"
	"github.com/wareqa/creditledger/internal/service/authservice"
	"github.com/wareqa/creditledger/internal/service/ledgerservice"
	"github.com/wareqa/creditledger/internal/service/settlementservice"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repos := &repo.Repositories{
		UserRepo:       authservice.NewMockRepo(ctrl),
		AccountRepo:    ledgerservice.NewMockAccountRepo(ctrl),
		EntryRepo:      ledgerservice.NewMockEntryRepo(ctrl),
		SettlementRepo: settlementservice.NewMockSettlementRepo(ctrl),
		PricingRepo:    settlementservice.NewMockPricingRepo(ctrl),
	}

	cfg := &config.Config{
		MinUnit:        100,
		DefaultPricing: "one_to_one",
	}

	services := New(repos, pg.NewMockTXManager(ctrl), ledgerservice.NewMockNotifier(ctrl), cfg)

	assert.NotNil(t, services.AuthService)
	assert.NotNil(t, services.LedgerService)
	assert.NotNil(t, services.TransferService)
	assert.NotNil(t, services.SettlementService)
	assert.NotNil(t, services.GrantService)
}
