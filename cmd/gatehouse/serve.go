package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/gatehouse"
	"github.com/dmitrymomot/gatehouse/middlewares"
	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/config"
	"github.com/dmitrymomot/gatehouse/pkg/cookie"
	"github.com/dmitrymomot/gatehouse/pkg/credential"
	"github.com/dmitrymomot/gatehouse/pkg/db"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/metrics"
	"github.com/dmitrymomot/gatehouse/pkg/password"
	"github.com/dmitrymomot/gatehouse/pkg/redis"
	"github.com/dmitrymomot/gatehouse/pkg/session"
	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

// ErrNoUserStore is returned when neither DATABASE_URL nor AUTH_USERS_SQLITE is set.
var ErrNoUserStore = errors.New("gatehouse: no user store configured (set DATABASE_URL or AUTH_USERS_SQLITE)")

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.App.Addr = addr
			}
			log := newLogger(cfg)

			app, runOpts, err := build(cmd.Context(), cfg, log)
			if err != nil {
				log.Error("startup failed", slog.Any("error", err))
				return err
			}
			return app.Run(cfg.App.Addr, runOpts...)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	return cmd
}

// backends holds the optional external connections.
type backends struct {
	pool    *pgxpool.Pool
	rdb     goredis.UniversalClient
	closers []func(context.Context) error
	checks  []gatehouse.HealthOption
}

func (b *backends) close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.DB.Enabled() {
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return b, err
		}
		b.pool = pool
		b.closers = append(b.closers, db.Shutdown(pool))
		if err := db.Migrate(ctx, pool, cfg.DB.MigrationsTable, log); err != nil {
			return b, err
		}
		b.checks = append(b.checks, gatehouse.WithReadinessCheck("db", db.Healthcheck(pool)))
	}

	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return b, err
		}
		b.rdb = rdb
		b.closers = append(b.closers, redis.Shutdown(rdb))
		b.checks = append(b.checks, gatehouse.WithReadinessCheck("redis", redis.Healthcheck(rdb)))
	}

	return b, nil
}

// userProvider prefers Postgres and falls back to a SQLite users file.
func userProvider(cfg *config.Config, b *backends) (credential.Provider, error) {
	if b.pool != nil {
		return credential.NewPostgres(b.pool, cfg.Auth.IdentityKey), nil
	}
	if cfg.Auth.UsersSQLite == "" {
		return nil, ErrNoUserStore
	}
	gdb, err := openUsers(cfg.Auth.UsersSQLite)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, closeGORM(gdb))
	return credential.NewGORM(gdb, credential.WithIdentityKey(cfg.Auth.IdentityKey)), nil
}

func tokenStore(cfg *config.Config, b *backends) transient.Store {
	if b.rdb != nil {
		return transient.NewRedis(b.rdb, cfg.Redis.Prefix+":transient")
	}
	m := transient.NewMemory()
	b.closers = append(b.closers, func(context.Context) error { return m.Close() })
	return m
}

func sessionStore(cfg *config.Config, b *backends) session.Store {
	switch {
	case b.rdb != nil:
		return session.NewRedisStore(b.rdb, cfg.Redis.Prefix)
	case b.pool != nil:
		return session.NewPostgresStore(b.pool)
	default:
		return session.NewMemoryStore()
	}
}

// kernelOptions are the options shared by serve and routes.
func kernelOptions(cfg *config.Config) []gatehouse.Option {
	targets := gatehouse.NewTargets()
	registerTargets(targets)

	routesFS, routesFile := splitPath(cfg.App.RoutesFile)
	modulesFS, modulesDir := splitPath(cfg.App.ModulesDir)

	return []gatehouse.Option{
		gatehouse.WithTargets(targets),
		gatehouse.WithRouteFile(routesFS, routesFile),
		gatehouse.WithModules(modulesFS, modulesDir),
	}
}

// splitPath turns a host path into an fs.FS rooted at its parent directory.
func splitPath(path string) (fs.FS, string) {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	return os.DirFS(dir), name
}

// build wires the application from configuration. On error every opened
// connection is closed.
func build(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *gatehouse.App, _ []gatehouse.RunOption, err error) {
	b, err := connect(ctx, cfg, log)
	defer func() {
		if err != nil && b != nil {
			_ = b.close(context.Background())
		}
	}()
	if err != nil {
		return nil, nil, err
	}

	provider, err := userProvider(cfg, b)
	if err != nil {
		return nil, nil, err
	}

	hooks := hook.New(hook.WithLogger(log))
	gate := auth.New(provider, tokenStore(cfg, b),
		auth.WithHooks(hooks),
		auth.WithLogger(log),
		auth.WithSessionKey(cfg.Auth.SessionKey),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
		auth.WithVerifier(password.NewHasher()),
	)
	if cfg.Auth.MaxAttempts > 0 {
		var topts []auth.ThrottleOption
		if cfg.Auth.ResetOnLogin {
			topts = append(topts, auth.ResetOnSuccess())
		}
		auth.Throttle(hooks, cfg.Auth.MaxAttempts, topts...)
	}
	if cfg.Auth.StrongPolicy {
		auth.PasswordPolicy(hooks, password.DefaultStrength)
	}

	store := sessionStore(cfg, b)
	sweeper, err := session.NewSweeper(store, cfg.Auth.SweepSchedule, log)
	if err != nil {
		return nil, nil, err
	}

	allow, deny, err := cfg.Auth.IPRules()
	if err != nil {
		return nil, nil, err
	}

	cookies := cookie.New(
		cookie.WithSecret(cfg.Auth.CookieSecret),
		cookie.WithSecure(cfg.Auth.CookieSecure),
	)

	dispatch := []gatehouse.DispatcherOption{
		gatehouse.WithLoginURL(cfg.Auth.LoginURL),
		gatehouse.WithAdminURL(cfg.Auth.AdminURL),
		gatehouse.WithRedirectCode(cfg.Auth.RedirectCode),
	}
	if cfg.Auth.APIEnabled() {
		dispatch = append(dispatch, gatehouse.WithAPICredentials(cfg.Auth.APIUser, cfg.Auth.APIPassword))
	}

	var httpMW []func(http.Handler) http.Handler
	if cfg.App.TrustProxy {
		httpMW = append(httpMW, middleware.RealIP)
	}
	httpMW = append(httpMW,
		middlewares.RequestID(),
		middlewares.IPAccess(allow, deny, middlewares.WithIPAccessLogger(log)),
	)

	opts := append(kernelOptions(cfg),
		gatehouse.WithCustomLogger(log),
		gatehouse.WithHooks(hooks),
		gatehouse.WithGate(gate),
		gatehouse.WithSessions(store,
			gatehouse.WithSessionCookieName(cfg.Auth.SessionCookie),
			gatehouse.WithSessionTTL(cfg.Auth.SessionTTL),
			gatehouse.WithSessionCookies(cookies),
		),
		gatehouse.WithDispatch(dispatch...),
		gatehouse.WithHealthChecks(b.checks...),
		gatehouse.WithMiddleware(middlewares.Recover()),
	)

	if cfg.App.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(reg)
		m.Subscribe(hooks)
		httpMW = append(httpMW, m.Middleware())
		opts = append(opts, gatehouse.WithMetrics(cfg.App.MetricsPath, metrics.Handler(reg)))
	}
	opts = append(opts, gatehouse.WithHTTPMiddleware(httpMW...))

	app, err := gatehouse.New(opts...)
	if err != nil {
		return nil, nil, err
	}

	runOpts := []gatehouse.RunOption{
		gatehouse.Logger(log),
		gatehouse.ShutdownTimeout(cfg.App.ShutdownTimeout),
		gatehouse.StartupHook(sweeper.Start),
		gatehouse.ShutdownHook(sweeper.Stop),
		gatehouse.ShutdownHook(b.close),
	}
	if ctx != nil {
		runOpts = append(runOpts, gatehouse.WithContext(ctx))
	}
	return app, runOpts, nil
}
