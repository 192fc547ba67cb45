// internal/middleware/accesslog.go
//
// Access-log and latency middleware.
//
/*
Context
--------
AccessLog sits at the top of the chain.  After the handler returns it
writes one INFO line per request with method, route, status, duration,
client IP, tenant id (when the resolver found one), and a coarse UA
fingerprint from internal/ua.  The same duration feeds the
`http_request_duration_seconds` histogram, labelled by chi route pattern
so per-id paths do not explode cardinality.

Notes
-----
  - The tenant id is read from the request header directly.  The resolver
    runs further down the chain, so its context value is not visible here.
  - /healthz and /metrics are logged at DEBUG to keep probes quiet.
  - Oxford commas, two spaces after periods.  No em dash.
*/

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/tenancy/internal/metrics"
	"github.com/yanizio/tenancy/internal/ua"
)

// AccessLog returns middleware that logs and times every request.
// tenantHeader names the header carrying the tenant id.
func AccessLog(log *zap.Logger, tenantHeader string) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routePattern(r)
			metrics.HTTPRequestDuration.
				WithLabelValues(route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())

			level := zap.InfoLevel
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				level = zap.DebugLevel
			}
			if ce := log.Check(level, "request"); ce != nil {
				ce.Write(
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("route", route),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", elapsed),
					zap.String("ip", clientIP(r)),
					zap.String("tenant", strings.TrimSpace(r.Header.Get(tenantHeader))),
					zap.String("request_id", chimw.GetReqID(r.Context())),
					zap.Object("ua", ua.Parse(r.UserAgent())),
				)
			}
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr ("ip:port").
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip.String()
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
