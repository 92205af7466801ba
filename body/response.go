// body/response.go
package body

import (
	"context"
	"io"
	"net/http"
)

// PayloadTooLargeMessage is the body sent with every 413 response produced by
// PayloadTooLarge.
const PayloadTooLargeMessage = "length limit exceeded"

// PayloadTooLargeContentType is the Content-Type of the 413 response.
const PayloadTooLargeContentType = "text/plain; charset=utf-8"

type variant uint8

const (
	passthrough variant = iota
	payloadTooLarge
)

// ResponseBody is either a passthrough over an inner body of type B or the
// fixed "length limit exceeded" payload. Which one is decided when it is
// constructed and never changes.
//
// Both forms satisfy Body, so code that serializes a ResponseBody does not
// need to know which one it holds.
type ResponseBody[B Body] struct {
	kind  variant
	inner B

	// data is the unread payload of the error form. It is set at
	// construction and cleared by the first Data call.
	data []byte
}

// NewResponseBody returns a ResponseBody that forwards every call to b.
func NewResponseBody[B Body](b B) *ResponseBody[B] {
	return &ResponseBody[B]{kind: passthrough, inner: b}
}

func newPayloadTooLarge[B Body]() *ResponseBody[B] {
	return &ResponseBody[B]{
		kind: payloadTooLarge,
		data: []byte(PayloadTooLargeMessage),
	}
}

// IsPayloadTooLarge reports whether b carries the fixed error payload rather
// than an inner body.
func (b *ResponseBody[B]) IsPayloadTooLarge() bool {
	return b.kind == payloadTooLarge
}

// Inner returns the wrapped body and true for a passthrough body, or the
// zero B and false for the error form.
func (b *ResponseBody[B]) Inner() (B, bool) {
	return b.inner, b.kind == passthrough
}

// Data returns the next chunk. The error form yields its payload on the first
// call and io.EOF on every call after that, without blocking.
func (b *ResponseBody[B]) Data(ctx context.Context) ([]byte, error) {
	if b.kind == payloadTooLarge {
		data := b.data
		b.data = nil
		if data == nil {
			return nil, io.EOF
		}
		return data, nil
	}
	return b.inner.Data(ctx)
}

// Trailers returns the inner body's trailers. The error form has none.
func (b *ResponseBody[B]) Trailers(ctx context.Context) (http.Header, error) {
	if b.kind == payloadTooLarge {
		return nil, nil
	}
	return b.inner.Trailers(ctx)
}

// IsEndStream reports whether the body is finished. The error form is
// finished once its payload has been read.
func (b *ResponseBody[B]) IsEndStream() bool {
	if b.kind == payloadTooLarge {
		return b.data == nil
	}
	return b.inner.IsEndStream()
}

// SizeHint returns the inner body's hint, or the exact length of the unread
// error payload.
func (b *ResponseBody[B]) SizeHint() SizeHint {
	if b.kind == payloadTooLarge {
		return Exact(uint64(len(b.data)))
	}
	return b.inner.SizeHint()
}

// Close closes the inner body if it implements io.Closer. Closing the error
// form discards the payload.
func (b *ResponseBody[B]) Close() error {
	if b.kind == payloadTooLarge {
		b.data = nil
		return nil
	}
	if c, ok := any(b.inner).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Response is a status, header map and body ready to be written with Write.
type Response[B Body] struct {
	Status int
	Header http.Header
	Body   *ResponseBody[B]
}

// PayloadTooLarge builds the response sent when a body exceeds its limit:
// status 413, a single Content-Type header of "text/plain; charset=utf-8",
// and an unread body holding PayloadTooLargeMessage.
//
// B only fixes the type of the returned body so it matches the passthrough
// bodies the caller builds elsewhere; no B value is involved.
func PayloadTooLarge[B Body]() *Response[B] {
	h := make(http.Header, 1)
	h.Set("Content-Type", PayloadTooLargeContentType)
	return &Response[B]{
		Status: http.StatusRequestEntityTooLarge,
		Header: h,
		Body:   newPayloadTooLarge[B](),
	}
}
