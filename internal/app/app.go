package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/internal/config"
	"github.com/you/accountsvc/internal/logger"
)

const shutdownTimeout = 15 * time.Second

// Run serves the HTTP API until SIGINT or SIGTERM, then drains in-flight requests
func Run(cfg *config.Config) error {
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := NewContainer(ctx, cfg, logger.L)
	if err != nil {
		return err
	}
	defer c.Close()
	// Workers outlive the signal so Close can drain queued messages
	c.Start(context.WithoutCancel(ctx))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("listening", slog.String("addr", srv.Addr), slog.String("driver", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Migrate creates the account and policy tables and seeds the default policies
func Migrate(ctx context.Context, cfg *config.Config) error {
	c, err := NewContainer(ctx, cfg, logger.L)
	if err != nil {
		return err
	}
	return c.Close()
}

// Check connects every configured store, applies migrations and reports what it found
func Check(ctx context.Context, cfg *config.Config) error {
	c, err := NewContainer(ctx, cfg, logger.L)
	if err != nil {
		return err
	}
	defer c.Close()

	accounts, err := c.Accounts.List(ctx)
	if err != nil {
		return err
	}
	logger.L.Info("stores reachable",
		slog.String("driver", cfg.DBDriver),
		slog.Bool("redis", c.Redis != nil),
		slog.Int("accounts", len(accounts)),
		slog.Int("policies", len(c.PolicySvc.GetPolicies())))
	return nil
}
