// Command bodylimitd is a reverse proxy that caps request and response body
// sizes, answering 413 "length limit exceeded" when a body is too large.
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/dalemusser/bodylimit/app"
	"github.com/dalemusser/bodylimit/auth/apikey"
	"github.com/dalemusser/bodylimit/config"
	"github.com/dalemusser/bodylimit/daemon"
	"github.com/dalemusser/bodylimit/health"
	"github.com/dalemusser/bodylimit/logging"
	"github.com/dalemusser/bodylimit/metrics"
	"github.com/dalemusser/bodylimit/pprof"
	"github.com/dalemusser/bodylimit/proxy"
	"github.com/dalemusser/bodylimit/router"
	"github.com/dalemusser/bodylimit/version"
	"go.uber.org/zap"
)

// Usage:
//
//	bodylimitd [flags]                  run in the foreground
//	bodylimitd service <action> [flags] run, install, uninstall, start, stop
//	                                    or restart as a system service
func main() {
	args := os.Args[1:]
	if len(args) >= 2 && args[0] == "service" {
		action, flags := args[1], args[2:]
		prg := &daemon.Program{Hooks: hooks(flags)}
		err := daemon.Control(daemon.Config{
			Name:        "bodylimitd",
			DisplayName: "bodylimit proxy",
			Description: "Reverse proxy that caps request and response body sizes.",
			Arguments:   append([]string{"service", "run"}, flags...),
		}, prg, action)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := app.Run(context.Background(), hooks(args)); err != nil {
		os.Exit(1)
	}
}

func hooks(args []string) app.Hooks {
	return app.Hooks{
		Name: "bodylimitd",
		LoadConfig: func(logger *zap.Logger) (*config.CoreConfig, error) {
			return config.Load(logger, args)
		},
		BuildHandler: buildHandler,
	}
}

// upstreamCheckTimeout bounds the /ready dial to the upstream.
const upstreamCheckTimeout = 2 * time.Second

// buildHandler mounts the operational endpoints and sends everything else
// to the upstream through the size-limited proxy.
func buildHandler(cfg *config.CoreConfig, logger *zap.Logger) (http.Handler, error) {
	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream_url: %w", err)
	}
	p, err := proxy.New(target, proxy.Options{
		MaxResponseBytes: cfg.MaxResponseBodyBytes,
		Logger:           logging.Component(logger, "proxy"),
	})
	if err != nil {
		return nil, err
	}

	r := router.New(cfg, logger)

	health.Mount(r, map[string]health.Check{
		"upstream": p.DialCheck(upstreamCheckTimeout),
	}, 0, logger)
	r.Method(http.MethodGet, "/version", version.Handler(cfg.MaxRequestBodyBytes, cfg.MaxResponseBodyBytes))

	// With a key, /metrics and the profiler sit behind it; without one only
	// /metrics is exposed.
	if cfg.MetricsAPIKey != "" {
		guard := apikey.Require(cfg.MetricsAPIKey, "bodylimit-ops", logger)
		r.With(guard).Method(http.MethodGet, "/metrics", metrics.Handler())
		pprof.Mount(r, guard)
	} else {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Handle("/*", p)

	logger.Info("proxy ready",
		zap.String("upstream", target.Redacted()),
		zap.Int64("max_request_body_bytes", cfg.MaxRequestBodyBytes),
		zap.Int64("max_response_body_bytes", cfg.MaxResponseBodyBytes),
		zap.String("version", version.String()),
	)
	return r, nil
}
