// internal/middleware/middleware_test.go
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	r := chi.NewRouter()
	r.Use(AccessLog(zap.New(core), "X-Tenant-ID"))
	r.Get("/posts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/posts/42", nil)
	req.Header.Set("X-Tenant-ID", "acme")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d access-log entries, want 1", len(entries))
	}
	f := entries[0].ContextMap()
	if f["status"] != int64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", f["status"])
	}
	if f["route"] != "/posts/{id}" {
		t.Errorf("route = %v, want /posts/{id}", f["route"])
	}
	if f["tenant"] != "acme" || f["ip"] != "203.0.113.9" {
		t.Errorf("tenant/ip = %v/%v", f["tenant"], f["ip"])
	}
	uaFields, _ := f["ua"].(map[string]any)
	if uaFields["bot"] != true {
		t.Errorf("ua = %v, want bot=true", f["ua"])
	}
}

func TestSecurity(t *testing.T) {
	h := Security(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, name := range []string{"Strict-Transport-Security", "X-Content-Type-Options", "Cache-Control"} {
		if rec.Header().Get(name) == "" {
			t.Errorf("%s not set", name)
		}
	}
}
