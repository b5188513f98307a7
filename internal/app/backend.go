package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonlinemenu/refadmin/internal/adapter/postgres"
	"github.com/wonlinemenu/refadmin/internal/adapter/postgres/reference"
	"github.com/wonlinemenu/refadmin/internal/adapter/postgres/token"
	"github.com/wonlinemenu/refadmin/internal/adapter/postgres/user"
	"github.com/wonlinemenu/refadmin/internal/auth"
	"github.com/wonlinemenu/refadmin/internal/backend"
	"github.com/wonlinemenu/refadmin/internal/backend/local"
	"github.com/wonlinemenu/refadmin/internal/backend/supabase"
	"github.com/wonlinemenu/refadmin/internal/config"
	authsvc "github.com/wonlinemenu/refadmin/internal/service/auth"
	"github.com/wonlinemenu/refadmin/internal/transport/rest"
)

// LocalStack is the PostgreSQL-backed state behind the local driver.
type LocalStack struct {
	Pool       *pgxpool.Pool
	Auth       *authsvc.Service
	References *reference.Repo
}

// OpenLocal connects to PostgreSQL and builds the auth service and
// repositories. The caller must Close the stack.
func OpenLocal(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*LocalStack, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("app.OpenLocal: %w", err)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
	svc := authsvc.NewService(
		logger,
		user.New(pool),
		token.New(pool),
		postgres.NewTxManager(pool),
		jwtManager,
		cfg.Auth,
	)

	return &LocalStack{
		Pool:       pool,
		Auth:       svc,
		References: reference.New(pool),
	}, nil
}

// Close releases the pool.
func (s *LocalStack) Close() {
	s.Pool.Close()
}

// backendStack is what the server needs from the selected driver.
type backendStack struct {
	factory backend.Factory
	checks  []rest.Check
	local   *LocalStack
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backendStack, error) {
	switch cfg.Backend.Driver {
	case config.DriverLocal:
		ls, err := OpenLocal(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &backendStack{
			factory: local.NewFactory(logger, ls.Auth, ls.References),
			checks: []rest.Check{
				{Name: "database", Pinger: ls.Pool},
				{Name: "references", Pinger: ls.References},
			},
			local: ls,
			close: ls.Close,
		}, nil

	case config.DriverSupabase:
		factory := supabase.NewFactory(logger, cfg.Backend.Supabase)
		probe := factory()
		return &backendStack{
			factory: factory,
			checks: []rest.Check{{
				Name:   "supabase",
				Pinger: rest.PingFunc(func(ctx context.Context) error { return backend.Ping(ctx, probe) }),
			}},
			close: func() {},
		}, nil
	}
	return nil, fmt.Errorf("app: unknown backend driver %q", cfg.Backend.Driver)
}
