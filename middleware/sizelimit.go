// middleware/sizelimit.go
package middleware

import (
	"net/http"

	"github.com/c2h5oh/datasize"
	"github.com/dalemusser/bodylimit/body"
	"github.com/dalemusser/bodylimit/metrics"
	"go.uber.org/zap"
)

// LimitBodySize returns a middleware that limits request bodies to maxBytes.
// If maxBytes <= 0 it is a no-op and does not wrap the body.
//
// A request whose Content-Length is already over the limit is answered with
// the 413 response from body.PayloadTooLarge without calling next. Any other
// request body is replaced by one that fails with *body.LengthLimitError as
// soon as more than maxBytes have been read; handlers that see that error
// should answer with WriteTooLarge.
//
// This should typically be applied early in the middleware chain to prevent
// handlers from processing huge bodies.
func LimitBodySize(maxBytes int64, logger *zap.Logger) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := datasize.ByteSize(maxBytes).HR()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				logger.Info("request body over limit",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int64("content_length", r.ContentLength),
					zap.String("limit", limit),
				)
				metrics.RecordRejection(metrics.DirectionRequest, metrics.ReasonContentLength)
				writeTooLarge(w, r, logger)
				return
			}

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = body.NewReader(r.Context(), body.Limited(body.FromRequest(r), maxBytes))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteTooLarge answers r with the 413 response if err is a
// *body.LengthLimitError and reports whether it did. Handlers call it with
// the error they got while reading a body limited by LimitBodySize:
//
//	data, err := io.ReadAll(r.Body)
//	if middleware.WriteTooLarge(w, r, err) {
//	    return
//	}
//
// It must be called before anything has been written to w.
func WriteTooLarge(w http.ResponseWriter, r *http.Request, err error) bool {
	if !body.IsLengthLimitError(err) {
		return false
	}
	metrics.RecordRejection(metrics.DirectionRequest, metrics.ReasonStream)
	writeTooLarge(w, r, nil)
	return true
}

func writeTooLarge(w http.ResponseWriter, r *http.Request, logger *zap.Logger) {
	// The rest of the request body is not read; don't reuse the connection.
	w.Header().Set("Connection", "close")
	if err := body.Write(r.Context(), w, body.PayloadTooLarge[*body.LimitedBody]()); err != nil && logger != nil {
		logger.Warn("write 413 response", zap.Error(err))
	}
}
