// body/reader.go
package body

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// maxChunkSize caps the size of a single chunk read from an io.Reader.
const maxChunkSize = 32 << 10

// ReaderBody adapts an io.ReadCloser, such as an http.Request or
// http.Response body, to Body.
type ReaderBody struct {
	rc        io.ReadCloser
	remaining int64 // -1 when the length is unknown
	trailer   func() http.Header

	eof bool
	err error // sticky read error, returned after any data read with it
}

// FromReader returns a Body reading from rc. size is the declared length of
// the content (a Content-Length), or -1 if unknown. A nil rc is an empty body.
//
// The context passed to Data is checked before each read; a read already in
// progress on rc is not interrupted.
func FromReader(rc io.ReadCloser, size int64) *ReaderBody {
	if size < 0 {
		size = -1
	}
	b := &ReaderBody{rc: rc, remaining: size}
	if rc == nil || rc == http.NoBody || size == 0 {
		b.eof = true
		b.remaining = 0
	}
	return b
}

// FromRequest returns a Body over r.Body. Trailers come from r.Trailer once
// the body has been read to the end.
func FromRequest(r *http.Request) *ReaderBody {
	b := FromReader(r.Body, r.ContentLength)
	b.trailer = func() http.Header { return r.Trailer }
	return b
}

// FromResponse returns a Body over resp.Body. Trailers come from
// resp.Trailer once the body has been read to the end.
func FromResponse(resp *http.Response) *ReaderBody {
	b := FromReader(resp.Body, resp.ContentLength)
	b.trailer = func() http.Header { return resp.Trailer }
	return b
}

// Data reads the next chunk, at most 32 KiB.
func (b *ReaderBody) Data(ctx context.Context) ([]byte, error) {
	if b.eof {
		return nil, io.EOF
	}
	if b.err != nil {
		return nil, b.err
	}

	size := int64(maxChunkSize)
	if b.remaining >= 0 && b.remaining < size {
		size = b.remaining
	}
	p := make([]byte, size)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := b.rc.Read(p)
		if b.remaining >= 0 {
			b.remaining -= int64(n)
			if b.remaining <= 0 {
				b.remaining = 0
				b.eof = true
			}
		}
		switch {
		case errors.Is(err, io.EOF):
			b.eof = true
		case err != nil:
			b.err = err
		}
		if n > 0 {
			return p[:n], nil
		}
		if err != nil {
			if b.eof {
				return nil, io.EOF
			}
			return nil, err
		}
		// Zero bytes and no error: ask again.
	}
}

// Trailers returns the non-empty trailer values, once the body has been read
// to the end. Before that, and when there are none, it returns nil.
func (b *ReaderBody) Trailers(context.Context) (http.Header, error) {
	if !b.eof || b.trailer == nil {
		return nil, nil
	}
	var out http.Header
	for k, vv := range b.trailer() {
		for _, v := range vv {
			if v == "" {
				continue
			}
			if out == nil {
				out = make(http.Header)
			}
			out.Add(k, v)
		}
	}
	return out, nil
}

func (b *ReaderBody) IsEndStream() bool { return b.eof }

// SizeHint is exact when the declared length is known and unbounded otherwise.
func (b *ReaderBody) SizeHint() SizeHint {
	if b.eof {
		return Exact(0)
	}
	if b.remaining < 0 {
		return Unbounded()
	}
	return Exact(uint64(b.remaining))
}

// Close closes the underlying reader.
func (b *ReaderBody) Close() error {
	if b.rc == nil {
		return nil
	}
	return b.rc.Close()
}

// NewReader returns an io.ReadCloser that reads the chunks of b in order.
// Errors from b, including io.EOF, are returned from Read unchanged. Close
// closes b if it implements io.Closer.
//
// ctx is passed to every Data call.
func NewReader(ctx context.Context, b Body) io.ReadCloser {
	return &bodyReader{ctx: ctx, body: b}
}

type bodyReader struct {
	ctx     context.Context
	body    Body
	pending []byte
	err     error
}

func (r *bodyReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		chunk, err := r.body.Data(r.ctx)
		if err != nil {
			r.err = err
			continue
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *bodyReader) Close() error {
	r.pending = nil
	if c, ok := r.body.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
