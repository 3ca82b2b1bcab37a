package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/SscSPs/commerce_ledger/internal/core/domain"
	"github.com/SscSPs/commerce_ledger/internal/middleware"
	"github.com/SscSPs/commerce_ledger/internal/platform/config"
	"github.com/SscSPs/commerce_ledger/internal/utils"
)

// systemActor is recorded as the acting user for CLI-triggered work.
const systemActor = "system"

func newOutboxCmd(logger *slog.Logger) *cobra.Command {
	outbox := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and flush the domain event outbox",
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Run one outbox dispatch pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			batchSize, _ := cmd.Flags().GetInt("batch-size")
			maxRetries, _ := cmd.Flags().GetInt("max-retries")
			if batchSize <= 0 {
				batchSize = a.cfg.OutboxBatchSize
			}
			if maxRetries < 0 {
				maxRetries = a.cfg.OutboxMaxRetries
			}

			ctx := middleware.WithLogger(cmd.Context(), logger)
			result, err := a.services.EventPublisher.PublishPendingEvents(ctx, batchSize, maxRetries)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	flush.Flags().Int("batch-size", 0, "Events to claim (default OUTBOX_BATCH_SIZE)")
	flush.Flags().Int("max-retries", -1, "Retry budget before dead-lettering (default OUTBOX_MAX_RETRIES)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count outbox events by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.services.EventPublisher.OutboxStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, counts)
		},
	}

	outbox.AddCommand(flush, stats)
	return outbox
}

func newBalancesCmd(logger *slog.Logger) *cobra.Command {
	balances := &cobra.Command{
		Use:   "balances",
		Short: "Maintain materialized period balances",
	}

	calculate := &cobra.Command{
		Use:     "calculate",
		Short:   "Calculate account balances for a fiscal period",
		Example: `  ledger_backend balances calculate --year 2024 --month 3 --recalculate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			recalculate, _ := cmd.Flags().GetBool("recalculate")

			period, err := domain.NewPeriodRef(year, month)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := middleware.WithLogger(cmd.Context(), logger.With(slog.String("fiscal_period", period.String())))
			result, err := a.services.Balance.CalculatePeriodBalances(ctx, period, recalculate, systemActor)
			if err != nil {
				return err
			}
			if !result.IsBalanced {
				logger.Warn("Trial balance does not balance", slog.String("difference", result.Difference.String()))
			}
			return printJSON(cmd, result)
		},
	}
	calculate.Flags().Int("year", 0, "Fiscal year")
	calculate.Flags().Int("month", 0, "Fiscal month (1-12)")
	calculate.Flags().Bool("recalculate", false, "Delete existing balances first")
	_ = calculate.MarkFlagRequired("year")
	_ = calculate.MarkFlagRequired("month")

	balances.AddCommand(calculate)
	return balances
}

func newTokenCmd(logger *slog.Logger) *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue API tokens",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token acting as the given user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			userID, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			signed, err := utils.GenerateJWT(userID, cfg.JWTSecret, ttl, cfg.JWTIssuer)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			logger.Info("Token issued", slog.String("user_id", userID), slog.Duration("ttl", ttl))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return err
		},
	}
	issue.Flags().String("user", systemActor, "Acting user id recorded on writes")
	issue.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")

	token.AddCommand(issue)
	return token
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
