// internal/app/boot.go
//
// Shared process bootstrap for cmd/web and cmd/tenantctl.
//
// Context
// -------
// Boot runs the same four steps for every binary:
//
//  1. Load configuration (koanf layers, validated).
//  2. Start the rotating file logger and install it globally.
//  3. Resolve `vault:` references when Vault is enabled.
//  4. Open and ping the control-plane pool.
//
// Close releases what Boot opened.  Tenant pools are owned by the session
// cache, not by Env.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/config"
	"github.com/yanizio/tenancy/internal/database"
	"github.com/yanizio/tenancy/internal/logger"
	"github.com/yanizio/tenancy/internal/vault"
)

// Env carries the process-wide dependencies built by Boot.
type Env struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *sqlx.DB
}

// Boot loads configuration and opens the control-plane pool.  ctx bounds
// startup and, when Vault is enabled, the token-renewal loop.
func Boot(ctx context.Context) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, cfg.Log.Tee || logger.RunningInTTY())
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}

	if cfg.Vault.Enabled {
		vc, err := vault.New(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		if err := config.ResolveSecrets(ctx, cfg, vc); err != nil {
			return nil, err
		}
	} else if err := config.ResolveSecrets(ctx, cfg, nil); err != nil {
		return nil, err
	}

	log.Info("connecting to control-plane database", zap.String("driver", cfg.Database.Driver))
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		return nil, fmt.Errorf("connect control-plane database: %w", err)
	}
	log.Info("control-plane database online")

	return &Env{Config: cfg, Log: log, DB: db}, nil
}

// Close releases the control-plane pool and flushes the logger.
func (e *Env) Close() {
	if err := e.DB.Close(); err != nil {
		e.Log.Warn("close control-plane database", zap.Error(err))
	}
	_ = e.Log.Sync()
}
