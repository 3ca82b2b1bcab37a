package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/SscSPs/commerce_ledger/cmd/docs"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/handlers"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
	"github.com/SscSPs/commerce_ledger/internal/platform/config"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			skipMigrations, _ := cmd.Flags().GetBool("skip-migrations")
			noDispatcher, _ := cmd.Flags().GetBool("no-dispatcher")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if !skipMigrations {
				if err := runMigrations(logger, a.cfg, 0); err != nil {
					return err
				}
			}

			router, err := newRouter(a, logger)
			if err != nil {
				return err
			}

			if !noDispatcher && a.queue != nil {
				go runDispatcher(ctx, logger, a.services.EventPublisher, a.cfg.OutboxDispatchInterval, a.cfg.OutboxBatchSize, a.cfg.OutboxMaxRetries)
			}

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("Server starting", slog.String("port", a.cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server failed to run: %w", err)
				}
			case <-ctx.Done():
				logger.Info("Shutting down server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().Bool("skip-migrations", false, "Do not apply migrations on startup")
	cmd.Flags().Bool("no-dispatcher", false, "Do not run the background outbox dispatcher")
	return cmd
}

func newRouter(a *app, logger *slog.Logger) (*gin.Engine, error) {
	if a.cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	if a.cfg.RateLimit != "" {
		limiter, err := middleware.NewRateLimiter(a.cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(middleware.RateLimit(limiter))
	}

	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	handlers.RegisterRoutes(r, a.cfg, a.services)
	setupSwaggerRoutes(r, a.cfg)
	return r, nil
}

// setupSwaggerRoutes serves the API docs outside production.
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// runDispatcher flushes the outbox every interval until ctx ends.
func runDispatcher(ctx context.Context, logger *slog.Logger, publisher portssvc.EventDispatcherSvc, interval time.Duration, batchSize, maxRetries int) {
	logger = logger.With(slog.String("component", "outbox_dispatcher"))
	logger.Info("Outbox dispatcher started", slog.Duration("interval", interval), slog.Int("batch_size", batchSize))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx = middleware.WithLogger(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			for {
				result, err := publisher.PublishPendingEvents(ctx, batchSize, maxRetries)
				if err != nil {
					logger.Error("Outbox dispatch failed", slog.String("error", err.Error()))
					break
				}
				// A full batch usually means more is waiting.
				if result.Total < batchSize || result.Failed > 0 || ctx.Err() != nil {
					break
				}
			}
		}
	}
}
