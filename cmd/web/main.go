// cmd/web/main.go
//
// HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Boot: config, rotating logger, Vault secrets, control-plane DB.
//
//  2. Bring the shared schema up to date (tenants registry).
//
//  3. Build the tenant session cache over a schema-scoped SQL factory.
//
//  4. Mount routes:
//
//   - /healthz, /metrics          – no tenant.
//   - /tenants                    – registry, no tenant.
//   - /posts                      – resolve tenant → borrow session →
//     handler.
//
//  5. Serve until SIGINT or SIGTERM, drain requests, then close every
//     tenant session.
//
// Large comment blocks are framed by blank "//" lines; inline comments use
// a single "//".
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/app"
	"github.com/yanizio/tenancy/internal/middleware"
	"github.com/yanizio/tenancy/internal/migrate"
	"github.com/yanizio/tenancy/internal/posts"
	"github.com/yanizio/tenancy/internal/registry"
	"github.com/yanizio/tenancy/internal/server"
	"github.com/yanizio/tenancy/internal/tenant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := app.Boot(ctx)
	if err != nil {
		log.Fatalf("boot: %v", err)
	}
	defer env.Close()
	cfg, logOut := env.Config, env.Log

	//
	// ── 1.  Shared schema ───────────────────────────────────────────────
	//
	mig := migrate.New(cfg.Database.Options(), logOut)
	if err := mig.MigratePublic(ctx); err != nil {
		logOut.Fatal("migrate shared schema", zap.Error(err))
	}

	//
	// ── 2.  Tenant session cache ────────────────────────────────────────
	//
	factory := tenant.NewSQLFactory(cfg.Database.Options(), cfg.Database.PoolSizePerTenant)
	cacheOpts := cfg.Tenancy.CacheOptions(cfg.Database)
	cacheOpts.Logger = logOut
	cache := tenant.New(factory, cacheOpts)
	accessor := tenant.NewAccessor(cache, logOut)

	logOut.Info("tenant session cache ready",
		zap.Int("max_entries", cacheOpts.MaxEntries),
		zap.Int("pool_size_per_tenant", cfg.Database.PoolSizePerTenant))

	//
	// ── 3.  Routes ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.AccessLog(logOut, cfg.HTTP.TenantHeader))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)

	r.Get("/healthz", server.Health(env.DB, cache.Len))
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/tenants", registry.NewHandler(registry.NewStore(env.DB, mig, logOut), logOut).Routes())

	r.Route("/posts", func(r chi.Router) {
		r.Use(tenant.Resolve(tenant.NewHeaderResolver(cfg.HTTP.TenantHeader)))
		r.Use(accessor.Middleware)
		r.Mount("/", posts.NewHandler(logOut).Routes())
	})

	//
	// ── 4.  Serve, then release tenant sessions ─────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r)
	if err := server.Run(ctx, srv, cfg.HTTP.ShutdownTimeout, logOut); err != nil {
		logOut.Error("http server", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := cache.Close(closeCtx); err != nil {
		logOut.Warn("tenant session cache close", zap.Error(err))
	}
	logOut.Info("shutdown complete")
}
