// router/router.go
package router

import (
	"github.com/dalemusser/bodylimit/config"
	"github.com/dalemusser/bodylimit/logging"
	"github.com/dalemusser/bodylimit/metrics"
	"github.com/dalemusser/bodylimit/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router with the standard middleware stack:
// - RequestID
// - RealIP
// - Recoverer (panic → 500, http.ErrAbortHandler re-raised)
// - CORS (if enabled)
// - metrics HTTP middleware
// - request logging
// - request body limit (MaxRequestBodyBytes)
// - NotFound / MethodNotAllowed JSON handlers
//
// Metrics and logging sit outside the body limit so 413s are counted and
// logged like any other response. Routes are mounted by the caller.
func New(coreCfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Request context & safety
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))

	// Preflights never reach the limit or the upstream.
	r.Use(middleware.CORSFromConfig(coreCfg.CORS))

	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))

	r.Use(middleware.LimitBodySize(coreCfg.MaxRequestBodyBytes, logger))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
