// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dalemusser/bodylimit/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
)

// ErrKeyPermissions marks a TLS key readable by group or others. It is a
// warning in dev and fatal in prod.
var ErrKeyPermissions = errors.New("TLS key file has overly permissive permissions")

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM.
// The returned cancel function also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Stringer("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// ListenAndServe serves handler according to cfg and blocks until ctx is
// canceled or a listener fails. Modes:
//
//   - plain HTTP on http_port
//   - HTTPS on https_port with cert_file/key_file, redirecting http_port
//   - HTTPS on https_port via Let's Encrypt http-01; http_port answers the
//     ACME challenge and redirects everything else
//
// On cancellation in-flight requests get shutdown_timeout to finish.
func ListenAndServe(ctx context.Context, cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("server: cfg is nil")
	}
	if handler == nil {
		return errors.New("server: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newHTTPServer(cfg.HTTP, handler, logger)
	httpAddr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)

	if !cfg.HTTP.UseHTTPS {
		ln, err := net.Listen("tcp", httpAddr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", httpAddr, err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		return run(ctx, cfg.HTTP.ShutdownTimeout, srv, ln, nil, logger)
	}

	tlsCfg, redirect, err := tlsSetup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	srv.TLSConfig = tlsCfg

	aux := newHTTPServer(cfg.HTTP, redirect, logger)
	auxLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", httpAddr, err)
	}

	httpsAddr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	baseLn, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		_ = auxLn.Close()
		return fmt.Errorf("listen https %s: %w", httpsAddr, err)
	}
	logger.Info("HTTPS server listening",
		zap.String("addr", baseLn.Addr().String()),
		zap.String("redirect_addr", auxLn.Addr().String()),
		zap.Bool("lets_encrypt", cfg.TLS.UseLetsEncrypt),
	)
	return run(ctx, cfg.HTTP.ShutdownTimeout, srv, tls.NewListener(baseLn, tlsCfg), &auxServer{srv: aux, ln: auxLn}, logger)
}

func newHTTPServer(h config.HTTPConfig, handler http.Handler, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       h.ReadTimeout,
		ReadHeaderTimeout: h.ReadHeaderTimeout,
		WriteTimeout:      h.WriteTimeout,
		IdleTimeout:       h.IdleTimeout,
	}
	// net/http errors (TLS handshakes, aborted handlers) go to zap at Warn.
	if stdlog, err := zap.NewStdLogAt(logger, zapcore.WarnLevel); err == nil {
		srv.ErrorLog = stdlog
	}
	return srv
}

// tlsSetup returns the TLS config for the HTTPS listener and the handler
// for the plain HTTP port.
func tlsSetup(ctx context.Context, cfg *config.CoreConfig, logger *zap.Logger) (*tls.Config, http.Handler, error) {
	if cfg.TLS.UseLetsEncrypt {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		go func() {
			if err := waitForCert(ctx, m, cfg.TLS.Domain, 60*time.Second); err != nil {
				logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
			}
		}()
		return &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate},
			m.HTTPHandler(httpRedirectHandler()), nil
	}

	if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
		if !errors.Is(err, ErrKeyPermissions) || cfg.Env == "prod" {
			return nil, nil, err
		}
		logger.Warn("TLS key file security warning (fatal in prod)", zap.Error(err))
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load TLS cert/key: %w", err)
	}
	return &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}},
		httpRedirectHandler(), nil
}

type auxServer struct {
	srv *http.Server
	ln  net.Listener
}

// run serves srv on ln (and aux, if any) until ctx is done or one of them
// fails, then shuts both down.
func run(ctx context.Context, shutdownTimeout time.Duration, srv *http.Server, ln net.Listener, aux *auxServer, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	// A nil channel never fires, so without aux its case is dead.
	var auxErr chan error
	if aux != nil {
		auxErr = make(chan error, 1)
		go func() { auxErr <- aux.srv.Serve(aux.ln) }()
	}

	shutdownAll := func(sctx context.Context) error {
		if aux != nil {
			_ = aux.srv.Shutdown(sctx)
		}
		return srv.Shutdown(sctx)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down server…")
		// ctx is already done; shutdown gets its own window.
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownAll(sctx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil

	case err := <-serveErr:
		_ = shutdownAll(context.Background())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("primary server error: %w", err)
		}
		return nil

	case err := <-auxErr:
		_ = srv.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("redirect server error: %w", err)
		}
		return nil
	}
}

// httpRedirectHandler redirects to https://<host><request-uri>, refusing
// hosts and URIs that could smuggle headers or redirect off-site.
func httpRedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqURI := r.URL.RequestURI()
		if !isValidHost(r.Host) || !isValidRequestURI(reqURI) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+reqURI, http.StatusMovedPermanently)
	})
}

func isValidRequestURI(uri string) bool {
	for _, c := range uri {
		if (c < 0x20 && c != '\t') || c == 0x7f {
			return false
		}
	}
	return true
}

// isValidHost accepts host, host:port, and bracketed IPv6 with an optional
// zone and port.
func isValidHost(host string) bool {
	if host == "" || strings.Contains(host, "://") || strings.HasPrefix(host, "/") {
		return false
	}

	hostPart := host
	if h, portStr, err := net.SplitHostPort(host); err == nil {
		port, perr := strconv.Atoi(portStr)
		if perr != nil || port <= 0 || port > 65535 {
			return false
		}
		hostPart = h
		if strings.HasPrefix(host, "[") {
			// SplitHostPort strips the brackets.
			hostPart = "[" + h + "]"
		}
	}
	if hostPart == "" {
		return false
	}

	if strings.HasPrefix(hostPart, "[") && strings.HasSuffix(hostPart, "]") {
		ip := hostPart[1 : len(hostPart)-1]
		if i := strings.IndexByte(ip, '%'); i != -1 {
			ip = ip[:i]
		}
		if net.ParseIP(ip) == nil {
			return false
		}
	}

	for _, c := range hostPart {
		if c <= 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}

// validateTLSFiles checks that both files exist and are regular files, and
// wraps ErrKeyPermissions if the key is readable by group or others.
func validateTLSFiles(certFile, keyFile string) error {
	if certFile == "" || keyFile == "" {
		return errors.New("manual TLS selected but cert_file / key_file not provided")
	}
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("TLS %s file does not exist: %s", f.kind, f.path)
			}
			return fmt.Errorf("cannot access TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory, not a file: %s", f.kind, f.path)
		}
		// Unix permission bits mean nothing on Windows.
		if f.kind == "key" && runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			return fmt.Errorf("%w: %s is %o (recommended: 0600)", ErrKeyPermissions, f.path, info.Mode().Perm())
		}
	}
	return nil
}

// waitForCert polls autocert until it has a certificate for host, ctx is
// done, or timeout passes.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for cert for %q: %w (last error: %v)", host, ctx.Err(), err)
		case <-ticker.C:
		}
	}
}
