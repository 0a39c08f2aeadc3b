package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"translation-queue/internal/config"
	"translation-queue/internal/infra/api"
	pg "translation-queue/internal/infra/db/postgres"
	"translation-queue/internal/infra/logging"
	"translation-queue/internal/usecase"
)

// cliEnv loads config and opens the database lazily, per command.
type cliEnv struct {
	cfgPath *string
	dev     *bool
}

func (e *cliEnv) load() (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.LoadConfig(*e.cfgPath, *e.dev)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.Log, cfg.Runtime.Dev), nil
}

func (e *cliEnv) open(ctx context.Context) (*pgxpool.Pool, *zerolog.Logger, error) {
	cfg, logger, err := e.load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	return pool, logger, nil
}

func newReconcileCmd(env *cliEnv) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Refund every failed or cancelled job still owed credits",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, logger, err := env.open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			credits := usecase.NewCreditReconciler(
				pg.NewAccountRepo(pool),
				pg.NewRefundLedgerRepo(pool),
				pg.NewTranslationJobRepo(pool),
				pg.NewTxManager(pool),
				nil,
				logger,
			)
			n, err := credits.Sweep(cmd.Context(), batch)
			fmt.Fprintf(cmd.OutOrStdout(), "refunded %d jobs\n", n)
			return err
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 1000, "maximum jobs to refund")
	return cmd
}

func newCreditsCmd(env *cliEnv) *cobra.Command {
	credits := &cobra.Command{
		Use:   "credits",
		Short: "Read or adjust account balances",
	}
	credits.AddCommand(
		&cobra.Command{
			Use:   "show OWNER",
			Short: "Print an account balance",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pool, _, err := env.open(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()
				n, err := pg.NewAccountRepo(pool).GetAccountCredits(cmd.Context(), nil, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", args[0], n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "grant OWNER AMOUNT",
			Short: "Add (or with a negative AMOUNT, remove) credits",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				delta, err := parseAmount(args[1])
				if err != nil {
					return err
				}
				pool, _, err := env.open(cmd.Context())
				if err != nil {
					return err
				}
				defer pool.Close()
				acc, err := pg.NewAccountRepo(pool).AddAccountCredits(cmd.Context(), nil, args[0], delta)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", acc.ID, acc.Credits)
				return nil
			},
		},
	)
	return credits
}

func parseAmount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	if n == 0 {
		return 0, errors.New("amount must not be zero")
	}
	return n, nil
}

func newTokenCmd(env *cliEnv) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token OWNER",
		Short: "Mint a bearer token for OWNER with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := env.load()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not set")
			}
			tok, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.CookieName).Mint(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
