// proxy/proxy.go
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/dalemusser/bodylimit/body"
	jsonutil "github.com/dalemusser/bodylimit/httputil"
	"github.com/dalemusser/bodylimit/metrics"
	"go.uber.org/zap"
)

// Options configure New.
type Options struct {
	// MaxResponseBytes bounds upstream response bodies; 0 disables the limit.
	MaxResponseBytes int64

	// Transport is used for upstream requests. Nil means
	// http.DefaultTransport.
	Transport http.RoundTripper

	Logger *zap.Logger
}

// Proxy forwards requests to a single upstream and enforces the response
// body limit.
//
// With a limit set, every response body it hands to the ReverseProxy reads
// from a *body.ResponseBody[*body.LimitedBody]: a passthrough over the
// limited upstream body, or the 413 payload when the upstream declared a
// Content-Length over the limit.
type Proxy struct {
	target   *url.URL
	maxBytes int64
	logger   *zap.Logger
	rp       *httputil.ReverseProxy
}

// New returns a Proxy for target, which must be an absolute http or https
// URL.
func New(target *url.URL, opts Options) (*Proxy, error) {
	if target == nil || target.Host == "" || (target.Scheme != "http" && target.Scheme != "https") {
		return nil, fmt.Errorf("proxy: invalid upstream URL %v", target)
	}
	if opts.MaxResponseBytes < 0 {
		return nil, fmt.Errorf("proxy: negative response limit %d", opts.MaxResponseBytes)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Proxy{
		target:   target,
		maxBytes: opts.MaxResponseBytes,
		logger:   logger,
	}
	p.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
		},
		Transport:      opts.Transport,
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.errorHandler,
		ErrorLog:       zap.NewStdLog(logger.Named("reverseproxy")),
	}
	return p, nil
}

// ServeHTTP forwards r to the upstream.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.rp.ServeHTTP(w, r)
}

// hasBody reports whether resp can carry a body the limit applies to. A 101
// hands the connection over to the upgraded protocol and its Body must stay
// the raw io.ReadWriteCloser. HEAD, 204 and 304 responses keep the declared
// Content-Length with nothing after it.
func hasBody(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusSwitchingProtocols, http.StatusNoContent, http.StatusNotModified:
		return false
	}
	return resp.Request == nil || resp.Request.Method != http.MethodHead
}

func (p *Proxy) modifyResponse(resp *http.Response) error {
	if p.maxBytes <= 0 || !hasBody(resp) {
		return nil
	}
	ctx := resp.Request.Context()

	var rb *body.ResponseBody[*body.LimitedBody]
	if resp.ContentLength > p.maxBytes {
		p.logger.Info("upstream response over limit",
			zap.String("path", resp.Request.URL.Path),
			zap.String("reason", metrics.ReasonContentLength),
			zap.Int("upstream_status", resp.StatusCode),
			zap.Int64("content_length", resp.ContentLength),
			zap.String("limit", datasize.ByteSize(p.maxBytes).HR()),
		)
		metrics.RecordRejection(metrics.DirectionResponse, metrics.ReasonContentLength)
		_ = resp.Body.Close()

		tooLarge := body.PayloadTooLarge[*body.LimitedBody]()
		n, _ := tooLarge.Body.SizeHint().Exact()
		resp.StatusCode = tooLarge.Status
		resp.Status = strconv.Itoa(tooLarge.Status) + " " + http.StatusText(tooLarge.Status)
		resp.Header = tooLarge.Header.Clone()
		resp.Header.Set("Content-Length", strconv.FormatUint(n, 10))
		resp.ContentLength = int64(n)
		resp.TransferEncoding = nil
		resp.Trailer = nil
		rb = tooLarge.Body
	} else {
		rb = body.NewResponseBody(body.Limited(body.FromResponse(resp), p.maxBytes))
	}

	// The fixed payload can't overrun; only a passthrough needs watching.
	if rb.IsPayloadTooLarge() {
		resp.Body = body.NewReader(ctx, rb)
		return nil
	}
	resp.Body = &overrunReporter{
		ReadCloser: body.NewReader(ctx, rb),
		p:          p,
		path:       resp.Request.URL.Path,
	}
	return nil
}

// overrunReporter records a response body that crosses the limit after the
// status line has been sent. The ReverseProxy aborts the connection on the
// read error; this is the only trace of why.
type overrunReporter struct {
	io.ReadCloser
	p        *Proxy
	path     string
	reported bool
}

func (o *overrunReporter) Read(b []byte) (int, error) {
	n, err := o.ReadCloser.Read(b)
	if err != nil && !o.reported && body.IsLengthLimitError(err) {
		o.reported = true
		metrics.RecordRejection(metrics.DirectionResponse, metrics.ReasonStream)
		o.p.logger.Warn("upstream response over limit",
			zap.String("path", o.path),
			zap.String("reason", metrics.ReasonStream),
			zap.String("limit", datasize.ByteSize(o.p.maxBytes).HR()),
		)
	}
	return n, err
}

// errorHandler runs when the upstream round trip fails, before anything has
// been written to w. A request body that crossed the limit mid-stream ends up
// here as a *body.LengthLimitError.
func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if body.IsLengthLimitError(err) {
		metrics.RecordRejection(metrics.DirectionRequest, metrics.ReasonStream)
		p.logger.Info("request body over limit while forwarding",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Connection", "close")
		if werr := body.Write(r.Context(), w, body.PayloadTooLarge[*body.LimitedBody]()); werr != nil {
			p.logger.Debug("write 413 response", zap.Error(werr))
		}
		return
	}

	if errors.Is(err, context.Canceled) {
		// Client went away; nobody is listening for a response.
		p.logger.Debug("upstream request canceled", zap.String("path", r.URL.Path))
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	p.logger.Error("upstream request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("upstream", p.target.Host),
		zap.Error(err),
	)
	jsonutil.JSONError(w, http.StatusBadGateway, "bad_gateway", "The upstream service is unavailable")
}

// DialCheck returns a health check that opens and closes a TCP connection to
// the upstream host, honoring the request context and timeout.
func (p *Proxy) DialCheck(timeout time.Duration) func(ctx context.Context) error {
	addr := p.target.Host
	if p.target.Port() == "" {
		port := "80"
		if p.target.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(p.target.Hostname(), port)
	}

	return func(ctx context.Context) error {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
