package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Transfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditledger_transfers_total",
		Help: "Peer-to-peer transfers by outcome.",
	}, []string{"status"})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditledger_settlements_total",
		Help: "Payment settlements by outcome.",
	}, []string{"status"})

	Grants = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "creditledger_grants_total",
		Help: "Admin credit issuances by kind.",
	}, []string{"kind"})

	Spends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditledger_spends_total",
		Help: "Successful credit spends.",
	})

	NotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "creditledger_notify_failures_total",
		Help: "Dropped creditsChanged notifications.",
	})
)
