package service

import (
	"github.com/wareqa/creditledger/internal/config"
	"github.com/wareqa/creditledger/internal/handlers/auth"
	"github.com/wareqa/creditledger/internal/handlers/ledger"
	"github.com/wareqa/creditledger/internal/handlers/transfer"

	pkgauth "github.com/wareqa/creditledger/pkg/auth"

	"github.com/wareqa/creditledger/internal/pg"
	"github.com/wareqa/creditledger/internal/repo"
	authservice "github.com/wareqa/creditledger/internal/service/authservice"
	grantservice "github.com/wareqa/creditledger/internal/service/grantservice"
	ledgerservice "github.com/wareqa/creditledger/internal/service/ledgerservice"
	settlementservice "github.com/wareqa/creditledger/internal/service/settlementservice"
	transferservice "github.com/wareqa/creditledger/internal/service/transferservice"
)

type Services struct {
	AuthService       auth.Service
	LedgerService     ledger.Service
	TransferService   transfer.Service
	SettlementService *settlementservice.Service
	GrantService      *grantservice.Service
}

func New(repo *repo.Repositories, txManager pg.TXManager, notifier ledgerservice.Notifier, cfg *config.Config) *Services {
	ledgerService := ledgerservice.New(repo.AccountRepo, repo.EntryRepo, txManager, notifier)
	transferService := transferservice.New(repo.AccountRepo, repo.EntryRepo, txManager, notifier, cfg.MinUnit)
	settlementService := settlementservice.New(repo.SettlementRepo, repo.PricingRepo, repo.AccountRepo, repo.EntryRepo, txManager, notifier, cfg.DefaultPricing)
	grantService := grantservice.New(repo.AccountRepo, repo.EntryRepo, txManager, notifier, cfg.MinUnit)
	authService := authservice.New(repo.UserRepo, ledgerService, &pkgauth.HashService{}, &pkgauth.JWTService{})

	return &Services{
		AuthService:       authService,
		LedgerService:     ledgerService,
		TransferService:   transferService,
		SettlementService: settlementService,
		GrantService:      grantService,
	}
}
