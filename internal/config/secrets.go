// internal/config/secrets.go
//
// Vault reference resolution.
//
// Context
// -------
// Secret-bearing fields may hold `vault:<path>#<key>` instead of a literal,
// for example `vault:secret/tenancy/db#password`.  `ResolveSecrets` swaps
// each reference for the value read through a SecretSource (normally
// *vault.Client) and leaves literals untouched.
//
// Notes
// -----
//   - A reference with Vault disabled is a configuration error, not a
//     literal password.
//   - Oxford commas, two spaces after periods.

package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// VaultPrefix marks a value that must be read from Vault.
const VaultPrefix = "vault:"

// ErrVaultDisabled is returned when a reference is found but no source is
// configured.
var ErrVaultDisabled = errors.New("config: vault reference found but vault is disabled")

// SecretSource reads one key from a KV secret.
type SecretSource interface {
	GetKV(ctx context.Context, path, key string, ttl time.Duration) (string, error)
}

// ParseRef splits `vault:<path>#<key>`.  ok is false for literals.
func ParseRef(s string) (path, key string, ok bool, err error) {
	if !strings.HasPrefix(s, VaultPrefix) {
		return "", "", false, nil
	}
	path, key, found := strings.Cut(strings.TrimPrefix(s, VaultPrefix), "#")
	if !found || path == "" || key == "" {
		return "", "", true, fmt.Errorf("config: malformed vault reference %q (want vault:<path>#<key>)", s)
	}
	return path, key, true, nil
}

// ResolveSecrets replaces vault references in cfg.  src may be nil when
// cfg.Vault.Enabled is false.
func ResolveSecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	fields := []struct {
		name string
		val  *string
	}{
		{"database.dsn", &cfg.Database.DSN},
		{"database.password", &cfg.Database.Password},
	}
	for _, f := range fields {
		path, key, ok, err := ParseRef(*f.val)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if src == nil || !cfg.Vault.Enabled {
			return fmt.Errorf("%w: %s", ErrVaultDisabled, f.name)
		}
		secret, err := src.GetKV(ctx, path, key, cfg.Vault.CacheTTL)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", f.name, err)
		}
		*f.val = secret
	}
	return nil
}
