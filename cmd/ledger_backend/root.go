package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/SscSPs/commerce_ledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/commerce_ledger/internal/adapters/lock/redislock"
	"github.com/SscSPs/commerce_ledger/internal/adapters/queue/rabbitmq"
	portsrepo "github.com/SscSPs/commerce_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/commerce_ledger/internal/core/ports/services"
	"github.com/SscSPs/commerce_ledger/internal/core/services"
	"github.com/SscSPs/commerce_ledger/internal/platform/config"
	"github.com/SscSPs/commerce_ledger/pkg/database"
)

var version = "dev"

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger_backend",
		Short: "Commerce ledger: journal, fiscal periods, balances and bank reconciliation",
		Long: `ledger_backend runs the commerce ledger HTTP API and its maintenance tasks.

Configuration is read from the environment and an optional .env file
(PGSQL_URL, RABBITMQ_URL, REDIS_ADDR, JWT_SECRET, ...).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(logger),
		newMigrateCmd(logger),
		newOutboxCmd(logger),
		newBalancesCmd(logger),
		newTokenCmd(logger),
	)
	return root
}

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	queue    *rabbitmq.Publisher
	redis    *redis.Client
	services *portssvc.ServiceContainer
}

// newApp connects to postgres and, when configured, rabbitmq and redis, then
// builds the service container on top of them.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	a.pool, err = database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.EnableDBCheck)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}
	logger.Info("Database connection pool established.")

	var queue portsrepo.QueuePublisher
	if cfg.RabbitMQURL != "" {
		a.queue, err = rabbitmq.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			a.Close()
			return nil, err
		}
		queue = a.queue
		logger.Info("RabbitMQ publisher ready", slog.String("exchange", cfg.RabbitMQExchange))
	}

	var locker portsrepo.PeriodLocker
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = redislock.New(a.redis, redislock.Options{Expiry: cfg.BalanceLockExpiry})
		logger.Info("Redis period locker ready", slog.String("addr", cfg.RedisAddr))
	}

	a.services = services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(a.pool), queue, locker)
	return a, nil
}

// Close releases every connection the app opened.
func (a *app) Close() {
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			a.logger.Error("Error closing rabbitmq publisher", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("Error closing redis client", slog.String("error", err.Error()))
		}
	}
	database.ClosePgxPool(a.pool)
}
