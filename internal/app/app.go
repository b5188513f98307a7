package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/wonlinemenu/refadmin/internal/config"
	"github.com/wonlinemenu/refadmin/internal/metrics"
	"github.com/wonlinemenu/refadmin/internal/publiclist"
	"github.com/wonlinemenu/refadmin/internal/reflist"
	"github.com/wonlinemenu/refadmin/internal/scheduler"
	"github.com/wonlinemenu/refadmin/internal/session"
	"github.com/wonlinemenu/refadmin/internal/transport/middleware"
	"github.com/wonlinemenu/refadmin/internal/transport/rest"
	"github.com/wonlinemenu/refadmin/internal/transport/web"
	"github.com/wonlinemenu/refadmin/internal/visitor"
)

// Run is the server entry point. It loads configuration, connects the
// selected backend, starts the HTTP server and the scheduler, and blocks
// until ctx is cancelled or either of them fails.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("backend", cfg.Backend.Driver),
		slog.String("log_level", cfg.Log.Level),
	)

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.close()

	rec := metrics.New()
	sched := scheduler.New(logger)

	registry := visitor.NewRegistry(be.factory, logger, visitor.Options{
		TTL:         cfg.Session.VisitorTTL,
		Observer:    rec,
		SessionOpts: []session.Option{session.WithObserver(rec)},
		ListOpts: []reflist.Option{
			reflist.WithOrder(reflist.AdminOrder),
			reflist.WithObserver(rec),
		},
	})
	defer registry.Close()

	board := publiclist.NewBoard(be.factory(), logger, rec)
	defer board.Close()

	var limiter *middleware.RateLimiter
	if cfg.Server.LoginRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.LoginRateLimit)
	}

	if err := scheduleJobs(cfg, logger, sched, board, registry, limiter, be); err != nil {
		return err
	}

	// Failure is logged and surfaced on the page; the schedule retries.
	_ = board.Refresh(ctx)

	webSrv, err := web.New(logger, board, web.Options{
		ResolveWait: cfg.Session.ResolveWait,
		Visitor: middleware.Visitor(registry, middleware.VisitorCookie{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Session.VisitorTTL,
		}),
		LoginLimiter: limiter,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      newRouter(cfg, logger, rec, webSrv, rest.NewHealthHandler(BuildVersion(), be.checks...)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))
		webSrv.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("application stopped")
	return nil
}

// newRouter assembles the HTTP surface. Metrics run as router middleware so
// the matched route template is known.
func newRouter(cfg *config.Config, logger *slog.Logger, rec *metrics.Recorder, webSrv *web.Server, health *rest.HealthHandler) http.Handler {
	r := mux.NewRouter()
	if cfg.Metrics.Enabled {
		r.Use(mux.MiddlewareFunc(middleware.Metrics(rec)))
		r.Handle(cfg.Metrics.Path, rec.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/live", health.Live).Methods(http.MethodGet)
	r.HandleFunc("/ready", health.Ready).Methods(http.MethodGet)
	r.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	webSrv.Register(r)

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
	)(r)
}

func scheduleJobs(cfg *config.Config, logger *slog.Logger, sched *scheduler.Scheduler, board *publiclist.Board, registry *visitor.Registry, limiter *middleware.RateLimiter, be *backendStack) error {
	if err := board.Schedule(sched, cfg.Public.RefreshSchedule); err != nil {
		return err
	}

	if _, err := sched.Add("visitor-sweep", cfg.Session.SweepSchedule, func(ctx context.Context) {
		if n := registry.Sweep(time.Now()); n > 0 {
			logger.DebugContext(ctx, "idle visitors released", slog.Int("count", n))
		}
	}); err != nil {
		return err
	}

	if limiter != nil {
		if _, err := sched.Add("login-limiter-sweep", cfg.Session.SweepSchedule, func(context.Context) {
			limiter.Sweep(time.Now())
		}); err != nil {
			return err
		}
	}

	if be.local != nil {
		if _, err := sched.Add("tokens-cleanup", "@hourly", func(ctx context.Context) {
			// Logged by the service.
			_, _ = be.local.Auth.CleanupExpiredTokens(ctx)
		}); err != nil {
			return err
		}
	}
	return nil
}
