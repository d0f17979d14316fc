package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/cashlinkhq/cashlink-backend/api/routes"
	"github.com/cashlinkhq/cashlink-backend/internal/actors"
	"github.com/cashlinkhq/cashlink-backend/internal/cron"
	"github.com/cashlinkhq/cashlink-backend/internal/gateway"
	"github.com/cashlinkhq/cashlink-backend/internal/ledger"
	"github.com/cashlinkhq/cashlink-backend/internal/transactions"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/db"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/metrics"
	"github.com/cashlinkhq/cashlink-backend/pkg/migrate"
	"github.com/cashlinkhq/cashlink-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "gateway"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "gateway"

	logg = logger.New(logger.Options{
		ServiceName: "gateway",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Append(dbClient.Close(), redisClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	gwMetrics := metrics.NewGatewayMetrics(prometheus.DefaultRegisterer)

	hub, err := gateway.NewHub(gateway.HubParams{
		RecoveryCfg: cfg.Recovery,
		Metrics:     gwMetrics,
		Log:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hub", err)
		os.Exit(1)
	}

	actorsRepo := actors.NewRepository(dbClient.DB())
	actorsService, err := actors.NewService(actors.Params{
		Repo:   actorsRepo,
		JWTCfg: cfg.JWT,
		Log:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create actors service", err)
		os.Exit(1)
	}

	transactionsService, err := transactions.NewService(transactions.Params{
		Repo:    transactions.NewRepository(dbClient.DB()),
		Players: actorsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transactions service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	dispatcher, err := gateway.NewDispatcher(gateway.DispatcherParams{
		Hub:          hub,
		Actors:       actorsService,
		Transactions: transactionsService,
		Ledger:       ledgerService,
		Log:          logg,
		Metrics:      gwMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	wsServer, err := gateway.NewServer(gateway.ServerParams{
		Hub:        hub,
		Dispatcher: dispatcher,
		Cfg:        cfg.Socket,
		Log:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create websocket server", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Cleanup.Enabled {
		// The room sweep runs in-process because rooms live in this
		// gateway's memory.
		roomJob, err := cron.NewRoomCleanupJob(hub, logg)
		if err != nil {
			logg.Error(ctx, "failed to create room cleanup job", err)
			os.Exit(1)
		}
		sweeper, err := cron.NewService(cron.ServiceParams{
			Logger:   logg,
			Registry: cron.NewRegistry(roomJob),
			Lock:     cron.NewLocalLock(),
			Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
			Interval: cfg.Cleanup.Interval,
		})
		if err != nil {
			logg.Error(ctx, "failed to create room sweeper", err)
			os.Exit(1)
		}
		go func() {
			if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "room sweeper stopped unexpectedly", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting gateway")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, map[string]db.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		}, wsServer),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "gateway stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error shutting down http server", err)
	}

	logg.Info(ctx, "gateway shut down gracefully")
}
