package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/lakegate/pkg/auth"
	"github.com/rhuss/lakegate/pkg/auth/bearer"
	"github.com/rhuss/lakegate/pkg/config"
	"github.com/rhuss/lakegate/pkg/metering"
	transporthttp "github.com/rhuss/lakegate/pkg/transport/http"
	"github.com/rhuss/lakegate/pkg/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `Run the gateway HTTP server.

Requests under /api/catalog/ are authenticated, metered, and proxied to
upstream.url. The server stops gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	authn, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}

	gate, err := metering.New(meteringConfig(cfg.Metering))
	if err != nil {
		return fmt.Errorf("creating metering gate: %w", err)
	}
	if !gate.Enabled() {
		slog.Warn("metering disabled, balances are not enforced")
	}

	pool := worker.NewPool("gate", cfg.Workers.Size)

	router, err := transporthttp.NewRouter(transporthttp.RouterConfig{
		Config:    cfg,
		Store:     store,
		Provider:  bearer.Provider{},
		Augmentor: auth.NewAugmentor(authn, pool),
		Gate:      gate,
		Pool:      pool,
	})
	if err != nil {
		return err
	}

	srv := transporthttp.NewServer(router,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)

	slog.Info("lakegate starting",
		"port", cfg.Server.Port,
		"auth", cfg.Auth.Type,
		"metering", cfg.Metering.Enabled,
		"upstream", cfg.Upstream.URL,
		"workers", cfg.Workers.Size,
	)
	return srv.Run(ctx)
}
