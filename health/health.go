// health/health.go
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/bodylimit/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Check is a single readiness probe. It returns nil when the dependency is
// reachable. ctx is derived from the incoming request.
type Check func(ctx context.Context) error

// Response is the JSON body written by Handler.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DefaultTimeout bounds one round of checks when Handler is given a zero
// timeout.
const DefaultTimeout = 5 * time.Second

// Handler runs every check concurrently on each request and answers 200 with
// {"status":"ok"} when all pass, or 503 with {"status":"error"} and a
// per-check message otherwise. With no checks it is a plain liveness probe.
func Handler(checks map[string]Check, timeout time.Duration, logger *zap.Logger) http.Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = make(map[string]string, len(checks))
			failed  bool
			g       errgroup.Group
		)
		for name, check := range checks {
			g.Go(func() error {
				msg := "ok"
				if check != nil {
					if err := check(ctx); err != nil {
						msg = "error: " + err.Error()
						logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
					}
				}
				mu.Lock()
				results[name] = msg
				if msg != "ok" {
					failed = true
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if failed {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Checks: results})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok", Checks: results})
	})
}

// Mount attaches GET /health (liveness, no checks) and GET /ready (the given
// checks) to r.
func Mount(r chi.Router, checks map[string]Check, timeout time.Duration, logger *zap.Logger) {
	r.Method(http.MethodGet, "/health", Handler(nil, timeout, logger))
	r.Method(http.MethodGet, "/ready", Handler(checks, timeout, logger))
}
