package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/realtime/internal/api"
	"github.com/storefront/realtime/internal/api/handler"
	"github.com/storefront/realtime/internal/core/service"
	"github.com/storefront/realtime/internal/hub"
	mongodb "github.com/storefront/realtime/internal/infrastructure/db/mongo"
	redisdb "github.com/storefront/realtime/internal/infrastructure/db/redis"
	"github.com/storefront/realtime/internal/infrastructure/queue"
	"github.com/storefront/realtime/internal/pkg/config"
	"github.com/storefront/realtime/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the event hub and the inventory alert service",
	Long: `Connects to MongoDB and Redis, ensures indexes, starts the stock-change
workers and the hub, and serves the HTTP and websocket API until SIGINT or
SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP port (overrides PORT)")
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development", Service: "storefront-serve"})
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	alerts := mongodb.NewAlertRepository(db)
	ledger := mongodb.NewInventoryRepository(db)
	products := mongodb.NewProductRepository(db)
	if err := mongodb.EnsureIndexes(ctx, map[string]mongodb.Indexer{"alert": alerts, "ledger": ledger}); err != nil {
		return err
	}

	// --- Core ---
	h := hub.New(hub.Options{
		SendBuffer:       cfg.Hub.SendBuffer,
		WriteTimeout:     cfg.Hub.WriteTimeout,
		PingInterval:     cfg.Hub.PingInterval,
		ServerSideFilter: cfg.Hub.ServerSideFilter,
	}, logger.For(log, "hub"))

	alertService := service.NewAlertService(products, alerts, ledger, h, logger.For(log, "alerts"))
	eventService := service.NewEventService(h,
		redisdb.NewDedupChecker(rdb, cfg.Inventory.PublishDedupTTL),
		logger.For(log, "events"))
	dispatcher := queue.NewDispatcher(cfg.Inventory.StockWorkers, alertService, logger.For(log, "dispatcher"))

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		JWTSecret:  cfg.JWTSecret,
		Log:        logger.For(log, "api"),
		Hub:        h,
		Events:     eventService,
		Alerts:     alertService,
		Dispatcher: dispatcher,
		Health: map[string]handler.Pinger{
			"mongodb": handler.MongoPinger(db),
			"redis":   handler.RedisPinger(rdb),
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	dispatcher.Start(gctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Bool("server_side_filter", cfg.Hub.ServerSideFilter).Msg("storefront listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		// Hijacked websocket connections are not tracked by Shutdown.
		h.Close()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	return g.Wait()
}
