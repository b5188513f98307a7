// Package cli implements the refadmin operator commands.
package cli

import (
	"context"
	"log/slog"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/wonlinemenu/refadmin/internal/adapter/postgres"
	"github.com/wonlinemenu/refadmin/internal/app"
	"github.com/wonlinemenu/refadmin/internal/config"
	"github.com/wonlinemenu/refadmin/internal/domain"
	authsvc "github.com/wonlinemenu/refadmin/internal/service/auth"
)

// Migrator applies the embedded schema migrations.
type Migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
	Down(ctx context.Context) (*goose.MigrationResult, error)
	Status(ctx context.Context) ([]*goose.MigrationStatus, error)
}

// Accounts manages admin accounts and their refresh tokens.
type Accounts interface {
	CreateUser(ctx context.Context, input authsvc.CreateUserInput) (*domain.User, error)
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// Env supplies the commands' dependencies.
type Env struct {
	LoadConfig   func() (*config.Config, error)
	NewLogger    func(cfg config.LogConfig) *slog.Logger
	OpenMigrator func(dsn string) (Migrator, func() error, error)
	OpenAccounts func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Accounts, func(), error)
}

// DefaultEnv wires the commands to PostgreSQL.
func DefaultEnv() Env {
	return Env{
		LoadConfig: config.Load,
		NewLogger:  app.NewLogger,
		OpenMigrator: func(dsn string) (Migrator, func() error, error) {
			provider, db, err := postgres.OpenMigrator(dsn)
			if err != nil {
				return nil, nil, err
			}
			return provider, db.Close, nil
		},
		OpenAccounts: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Accounts, func(), error) {
			ls, err := app.OpenLocal(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			return ls.Auth, ls.Close, nil
		},
	}
}

// Execute runs the root command with DefaultEnv.
func Execute(ctx context.Context) error {
	return NewRootCmd(DefaultEnv()).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd(env Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "refadmin",
		Short:         "Operator tools for the reference admin panel",
		Long:          "refadmin manages the local backend: schema migrations, admin accounts and refresh token cleanup.",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       app.BuildVersion(),
	}

	rootCmd.AddCommand(
		newMigrateCmd(env),
		newUserCmd(env),
		newTokensCmd(env),
	)

	return rootCmd
}

// withAccounts loads config and opens the account service for one command.
func withAccounts(cmd *cobra.Command, env Env, fn func(ctx context.Context, accounts Accounts) error) error {
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	logger := env.NewLogger(cfg.Log)

	accounts, closeFn, err := env.OpenAccounts(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(cmd.Context(), accounts)
}
