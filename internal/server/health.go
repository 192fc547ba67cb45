package server

import (
	"context"
	"net/http"
	"time"

	"github.com/yanizio/tenancy/internal/httpx"
)

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports control-plane reachability and the number of cached tenant
// sessions.  sessions may be nil.
func Health(db Pinger, sessions func() int) http.HandlerFunc {
	type body struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Sessions int    `json:"sessions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		b := body{Status: "ok", Database: "ok"}
		if sessions != nil {
			b.Sessions = sessions()
		}
		status := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			b.Status, b.Database = "degraded", "unreachable"
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, b)
	}
}
