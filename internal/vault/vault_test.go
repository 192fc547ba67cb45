// internal/vault/vault_test.go
//
// GetKV against an httptest server speaking the KV-v2 read API.
//
// Run: go test ./internal/vault -v

package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap/zaptest"
)

const kvBody = `{
  "data": {
    "data": {"password": "hunter2", "port": 5432},
    "metadata": {
      "created_time": "2025-06-01T12:00:00.000000000Z",
      "custom_metadata": null,
      "deletion_time": "",
      "destroyed": false,
      "version": 3
    }
  }
}`

func newTestClient(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/tenancy/db" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvBody))
	}))
	t.Cleanup(srv.Close)

	cfg := vault.DefaultConfig()
	cfg.Address = srv.URL
	cfg.MaxRetries = 0
	c, err := newClient(cfg, "root", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return c, &hits
}

func TestGetKV(t *testing.T) {
	c, hits := newTestClient(t)

	got, err := c.GetKV(context.Background(), "secret/tenancy/db", "password", time.Minute)
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if got != "hunter2" {
		t.Fatalf("value = %q, want hunter2", got)
	}

	if _, err := c.GetKV(context.Background(), "secret/tenancy/db", "password", time.Minute); err != nil {
		t.Fatalf("cached GetKV: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("server hits = %d, want 1 (second read cached)", n)
	}
}

func TestGetKV_CacheExpires(t *testing.T) {
	c, hits := newTestClient(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, err := c.GetKV(context.Background(), "secret/tenancy/db", "password", time.Minute); err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := c.GetKV(context.Background(), "secret/tenancy/db", "password", time.Minute); err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("server hits = %d, want 2 after expiry", n)
	}
}

func TestGetKV_Errors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if _, err := c.GetKV(ctx, "", "password", 0); err == nil {
		t.Fatalf("empty path accepted")
	}
	if _, err := c.GetKV(ctx, "secret/tenancy/db", "username", 0); err == nil {
		t.Fatalf("missing key accepted")
	}
	if _, err := c.GetKV(ctx, "secret/tenancy/db", "port", 0); err == nil {
		t.Fatalf("non-string value accepted")
	}
}

func TestSplitMount(t *testing.T) {
	m, rel := splitMount("secret/tenancy/db")
	if m != "secret" || rel != "tenancy/db" {
		t.Fatalf("splitMount = %q %q", m, rel)
	}
}
