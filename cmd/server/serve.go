package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpDelivery "github.com/tallaby/backend/internal/delivery/http"
	"github.com/tallaby/backend/internal/infrastructure/ratelimit"
)

const shutdownTimeout = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the product extraction API",
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port := servePort
	if port == "" {
		port = cfg.Server.Port
	}

	zap.L().Info("starting tallaby backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", port),
		zap.String("marketplace", cfg.Marketplace.Domain),
		zap.Duration("fetch_timeout", cfg.Scraper.Timeout),
	)

	var limiter *ratelimit.Store
	if cfg.RateLimit.PerIP > 0 {
		limiter = ratelimit.NewStore(cfg.RateLimit.PerIP, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		defer limiter.Close()
		zap.L().Info("rate limiting enabled",
			zap.Int("per_minute", cfg.RateLimit.PerIP),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
	}

	handler := httpDelivery.NewHandler(newProductService(cfg))
	router := httpDelivery.SetupRouter(cfg, handler, limiter)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}

	return nil
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
