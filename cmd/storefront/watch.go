package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/pkg/config"
	"github.com/storefront/realtime/internal/reconcile"
	"github.com/storefront/realtime/pkg/logger"
)

const handshakeTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a hub as a client and keep a local reconciled view",
	Long: `Connects to the hub's websocket stream with the identity in HUB_TOKEN
(anonymous when empty), hydrates from the REST snapshots at API_URL and logs
every cache change. Reconnects at a fixed interval and exits non-zero once
RECONNECT_MAX_ATTEMPTS consecutive attempts have failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWatch()
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("hub-url"); v != "" {
			cfg.HubURL = v
		}
		if v, _ := cmd.Flags().GetString("api-url"); v != "" {
			cfg.APIURL = v
		}
		return runWatch(cmd.Context(), cfg)
	},
}

func init() {
	watchCmd.Flags().String("hub-url", "", "websocket URL of the hub (overrides HUB_URL)")
	watchCmd.Flags().String("api-url", "", "base URL of the snapshot API (overrides API_URL)")
}

func runWatch(ctx context.Context, cfg *config.WatchConfig) error {
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development", Service: "storefront-watch"})

	identity, err := reconcile.TokenIdentity(cfg.Token)
	if err != nil {
		return err
	}

	rec := reconcile.New(identity,
		reconcile.NewHTTPSnapshotReader(cfg.APIURL, cfg.Token, cfg.SnapshotTimeout),
		reconcile.Options{
			QuietWindow:     cfg.ActivityQuietWindow,
			Retention:       cfg.ActivityRetention,
			SnapshotTimeout: cfg.SnapshotTimeout,
		},
		logger.For(log, "reconciler"))
	rec.OnChange(func(tag domain.Tag) {
		s := rec.Cache().Snapshot()
		log.Info().
			Str("tag", string(tag)).
			Int("orders", len(s.Orders)).
			Int("notifications", len(s.Notifications)).
			Int("alerts", len(s.Alerts)).
			Int("activity", len(s.Activity)).
			Msg("cache updated")
	})

	client := reconcile.NewClient(
		reconcile.NewWSDialer(cfg.HubURL, cfg.Token, handshakeTimeout),
		rec,
		reconcile.ClientOptions{Interval: cfg.ReconnectInterval, MaxAttempts: cfg.ReconnectMaxAttempts},
		logger.For(log, "client"))
	client.OnStateChange(func(s reconcile.State) {
		log.Info().Str("state", s.String()).Msg("transport state")
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec.Run(gctx)
		return nil
	})
	g.Go(func() error {
		err := client.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
