package repo

import (
	"github.com/wareqa/creditledger/internal/pg"
	accountrepo "github.com/wareqa/creditledger/internal/repo/account-repo"
	entryrepo "github.com/wareqa/creditledger/internal/repo/entry-repo"
	pricingrepo "github.com/wareqa/creditledger/internal/repo/pricing-repo"
	settlementrepo "github.com/wareqa/creditledger/internal/repo/settlement-repo"
	userrepo "github.com/wareqa/creditledger/internal/repo/user-repo"
	"github.com/wareqa/creditledger/internal/service/authservice"
	"github.com/wareqa/creditledger/internal/service/ledgerservice"
	"github.com/wareqa/creditledger/internal/service/settlementservice"
)

type Repositories struct {
	UserRepo       authservice.Repo
	AccountRepo    ledgerservice.AccountRepo
	EntryRepo      ledgerservice.EntryRepo
	SettlementRepo settlementservice.SettlementRepo
	PricingRepo    settlementservice.PricingRepo
}

func New(conn pg.Database) *Repositories {
	return &Repositories{
		UserRepo:       userrepo.New(conn),
		AccountRepo:    accountrepo.New(conn),
		EntryRepo:      entryrepo.New(conn),
		SettlementRepo: settlementrepo.New(conn),
		PricingRepo:    pricingrepo.New(conn),
	}
}
