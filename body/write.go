// body/write.go
package body

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
)

// Write sends resp to w: its headers, a Content-Length when the body's size
// is known exactly, the status, every chunk of the body and finally any
// trailers. A zero Status is sent as 200.
//
// Errors from the body are returned as-is. By the time one occurs the status
// has been sent, so the caller can only log it or abort the connection.
func Write[B Body](ctx context.Context, w http.ResponseWriter, resp *Response[B]) error {
	h := w.Header()
	for k, vv := range resp.Header {
		h[k] = append([]string(nil), vv...)
	}
	if n, ok := resp.Body.SizeHint().Exact(); ok && h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.FormatUint(n, 10))
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	return Copy(ctx, w, resp.Body)
}

// Copy writes every chunk of b to w, flushing after each chunk that is not
// the last when w supports it, then sets b's trailers on w using
// http.TrailerPrefix so they need not be declared in advance.
func Copy(ctx context.Context, w http.ResponseWriter, b Body) error {
	flusher, _ := w.(http.Flusher)
	for {
		chunk, err := b.Data(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if flusher != nil && !b.IsEndStream() {
			flusher.Flush()
		}
	}

	trailers, err := b.Trailers(ctx)
	if err != nil {
		return err
	}
	for k, vv := range trailers {
		for _, v := range vv {
			w.Header().Add(http.TrailerPrefix+k, v)
		}
	}
	return nil
}
