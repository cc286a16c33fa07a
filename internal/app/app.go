package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wareqa/creditledger/internal/config"
	"github.com/wareqa/creditledger/internal/gateway"
	"github.com/wareqa/creditledger/internal/handlers"
	"github.com/wareqa/creditledger/internal/notify"
	"github.com/wareqa/creditledger/internal/pg"
	"github.com/wareqa/creditledger/internal/repo"
	"github.com/wareqa/creditledger/internal/service"
	ledgerservice "github.com/wareqa/creditledger/internal/service/ledgerservice"
	"github.com/wareqa/creditledger/pkg/auth"
	"github.com/wareqa/creditledger/pkg/clients"
	"github.com/wareqa/creditledger/pkg/logger"
)

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg      *config.Config
	api      *handlers.Handlers
	srv      *service.Services
	repo     *repo.Repositories
	rec      *gateway.Reconciler
	notifier ledgerservice.Notifier

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}
	auth.SetSecret(cfg.JWTSecret)

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)

	conn := pg.New(pool)
	a.cfg = cfg
	a.repo = repo.New(conn)
	a.notifier = newNotifier(cfg)
	a.srv = service.New(a.repo, txManager, a.notifier, cfg)

	gatewayClient := gateway.NewClient(cfg, clients.NewHTTPClient())
	a.api = handlers.New(a.srv, gatewayClient, cfg.WebhookSecret)
	a.rec = gateway.NewReconciler(a.srv.SettlementService, gatewayClient)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.startReconciler(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

// newNotifier connects to the broker when one is configured and quietly
// degrades to a no-op publisher otherwise.
func newNotifier(cfg *config.Config) ledgerservice.Notifier {
	if cfg.AMQPAddress == "" {
		zap.L().Info("no AMQP address configured, balance notifications disabled")
		return notify.Noop{}
	}
	notifier, err := notify.NewAMQP(cfg.AMQPAddress)
	if err != nil {
		zap.L().Warn("AMQP connection failed, balance notifications disabled", zap.Error(err))
		return notify.Noop{}
	}
	return notifier
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:    a.cfg.Address,
		Handler: router,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startReconciler(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.rec.Start(ctx)
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	if closer, ok := a.notifier.(interface{ Close() }); ok {
		closer.Close()
	}

	return appErr
}
