// app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/bodylimit/config"
	"github.com/dalemusser/bodylimit/httputil"
	"github.com/dalemusser/bodylimit/logging"
	"github.com/dalemusser/bodylimit/metrics"
	"github.com/dalemusser/bodylimit/server"
	"github.com/dalemusser/bodylimit/version"
	"go.uber.org/zap"
)

// Hooks are the pieces a binary supplies to Run.
type Hooks struct {
	// Name is used only for logging.
	Name string

	// LoadConfig returns the validated configuration, usually via
	// config.Load.
	LoadConfig func(logger *zap.Logger) (*config.CoreConfig, error)

	// BuildHandler builds the final handler: router, middleware and routes.
	BuildHandler func(cfg *config.CoreConfig, logger *zap.Logger) (http.Handler, error)

	// Serve runs the handler until ctx is done. Nil means
	// server.ListenAndServe.
	Serve func(ctx context.Context, cfg *config.CoreConfig, h http.Handler, logger *zap.Logger) error
}

// Run executes the startup sequence:
//
//  1. Bootstrap logger
//  2. Load config (Hooks.LoadConfig)
//  3. Build final logger from log_level and env
//  4. Register default metrics and route JSON encode errors to the logger
//  5. Wire shutdown signals to a context
//  6. Build the HTTP handler (Hooks.BuildHandler)
//  7. Serve until shutdown
func Run(ctx context.Context, hooks Hooks) error {
	if hooks.LoadConfig == nil || hooks.BuildHandler == nil {
		return errors.New("app: LoadConfig and BuildHandler are required")
	}

	// 1) Bootstrap logger
	bootstrap := logging.BootstrapLogger(hooks.Name)
	defer bootstrap.Sync()
	bootstrap.Info("bootstrap logger initialized")

	// 2) Load config
	cfg, err := hooks.LoadConfig(bootstrap)
	if err != nil {
		bootstrap.Error("config load failed", zap.Error(err))
		return fmt.Errorf("load config: %w", err)
	}

	// 3) Final logger
	logger, err := logging.BuildLogger(logging.Options{
		Level:   cfg.LogLevel,
		Env:     cfg.Env,
		Service: hooks.Name,
		Version: version.Version,
	})
	if err != nil {
		bootstrap.Error("logger build failed", zap.Error(err))
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("logger initialized",
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
	)

	// 4) Metrics + JSON encode errors
	metrics.RegisterDefault(logger)
	httputil.SetLogger(logger)

	// 5) Shutdown signals
	ctx, cancel := server.WithShutdownSignals(ctx, logger)
	defer cancel()

	// 6) Handler
	handler, err := hooks.BuildHandler(cfg, logger)
	if err != nil {
		logger.Error("handler build failed", zap.Error(err))
		return fmt.Errorf("build handler: %w", err)
	}

	// 7) Serve
	serve := hooks.Serve
	if serve == nil {
		serve = server.ListenAndServe
	}
	if err := serve(ctx, cfg, handler, logging.Component(logger, "server")); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
