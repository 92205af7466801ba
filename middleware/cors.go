// middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/bodylimit/config"
	"github.com/go-chi/cors"
)

// CORSFromConfig returns a go-chi/cors middleware built from the CORS
// section of cfg, or an identity middleware when CORS is disabled.
//
// Preflight requests are answered here and never reach the size limit or
// the upstream.
func CORSFromConfig(cfg config.CORSConfig) func(next http.Handler) http.Handler {
	if !cfg.EnableCORS {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		ExposedHeaders:   cfg.CORSExposedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	})
}
