package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/wareqa/creditledger/docs"
	adminhandlers "github.com/wareqa/creditledger/internal/handlers/admin"
	authhandlers "github.com/wareqa/creditledger/internal/handlers/auth"
	ledgerhandlers "github.com/wareqa/creditledger/internal/handlers/ledger"
	paymenthandlers "github.com/wareqa/creditledger/internal/handlers/payment"
	transferhandlers "github.com/wareqa/creditledger/internal/handlers/transfer"
	"github.com/wareqa/creditledger/internal/service"
	"github.com/wareqa/creditledger/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type LedgerHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	Spend(w http.ResponseWriter, r *http.Request)
	GetEntries(w http.ResponseWriter, r *http.Request)
}

type TransferHandler interface {
	Transfer(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	Confirm(w http.ResponseWriter, r *http.Request)
	Webhook(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	Grant(w http.ResponseWriter, r *http.Request)
	Refund(w http.ResponseWriter, r *http.Request)
	ListPricing(w http.ResponseWriter, r *http.Request)
	UpsertPricing(w http.ResponseWriter, r *http.Request)
	DeletePricing(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler     AuthHandler
	LedgerHandler   LedgerHandler
	TransferHandler TransferHandler
	PaymentHandler  PaymentHandler
	AdminHandler    AdminHandler
}

func New(s *service.Services, gw paymenthandlers.Gateway, webhookSecret string) *Handlers {
	return &Handlers{
		AuthHandler:     authhandlers.New(s.AuthService),
		LedgerHandler:   ledgerhandlers.New(s.LedgerService),
		TransferHandler: transferhandlers.New(s.TransferService),
		PaymentHandler:  paymenthandlers.New(s.SettlementService, gw, webhookSecret),
		AdminHandler:    adminhandlers.New(s.GrantService, s.SettlementService),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.AuthHandler.Register)
			r.Post("/login", h.AuthHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(auth.AuthMiddleware)
				r.Get("/balance", h.LedgerHandler.GetBalance)
				r.Get("/entries", h.LedgerHandler.GetEntries)
				r.Post("/spend", h.LedgerHandler.Spend)
				r.Post("/transfer", h.TransferHandler.Transfer)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			r.Post("/payments/confirm", h.PaymentHandler.Confirm)
		})
		r.Post("/webhooks/payments", h.PaymentHandler.Webhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.AuthMiddleware, auth.AdminMiddleware)
			r.Post("/grant", h.AdminHandler.Grant)
			r.Post("/refund", h.AdminHandler.Refund)
			r.Route("/pricing", func(r chi.Router) {
				r.Get("/", h.AdminHandler.ListPricing)
				r.Post("/", h.AdminHandler.UpsertPricing)
				r.Delete("/{amount}", h.AdminHandler.DeletePricing)
			})
		})
	})

	return r
}
