// body/limited.go
package body

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// LengthLimitError is returned by a LimitedBody when its inner body produces
// more bytes than the limit allows.
type LengthLimitError struct {
	Limit int64
}

func (e *LengthLimitError) Error() string {
	return fmt.Sprintf("body: length limit of %d bytes exceeded", e.Limit)
}

// IsLengthLimitError reports whether err is, or wraps, a *LengthLimitError.
func IsLengthLimitError(err error) bool {
	var le *LengthLimitError
	return errors.As(err, &le)
}

// LimitedBody passes chunks through from an inner body until their total
// length would exceed a limit.
type LimitedBody struct {
	inner     Body
	limit     int64
	remaining int64
	err       error
}

// Limited returns a body that yields the chunks of b while their combined
// length stays within limit bytes. The chunk that would cross the limit is
// not delivered; Data returns a *LengthLimitError instead, and keeps
// returning it. A negative limit is treated as zero.
func Limited(b Body, limit int64) *LimitedBody {
	if limit < 0 {
		limit = 0
	}
	return &LimitedBody{inner: b, limit: limit, remaining: limit}
}

func (l *LimitedBody) Data(ctx context.Context) ([]byte, error) {
	if l.err != nil {
		return nil, l.err
	}
	chunk, err := l.inner.Data(ctx)
	if err != nil {
		return nil, err
	}
	if int64(len(chunk)) > l.remaining {
		l.err = &LengthLimitError{Limit: l.limit}
		return nil, l.err
	}
	l.remaining -= int64(len(chunk))
	return chunk, nil
}

func (l *LimitedBody) Trailers(ctx context.Context) (http.Header, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.inner.Trailers(ctx)
}

func (l *LimitedBody) IsEndStream() bool {
	return l.err == nil && l.inner.IsEndStream()
}

// SizeHint is the inner body's hint with the upper bound capped at the bytes
// still allowed.
func (l *LimitedBody) SizeHint() SizeHint {
	n := uint64(l.remaining)
	hint := l.inner.SizeHint()
	if hint.Lower() >= n {
		return Exact(n)
	}
	if upper, ok := hint.Upper(); ok && upper < n {
		return Between(hint.Lower(), upper)
	}
	return Between(hint.Lower(), n)
}

// Remaining returns the number of bytes that may still be read.
func (l *LimitedBody) Remaining() int64 { return l.remaining }

// Close closes the inner body if it implements io.Closer.
func (l *LimitedBody) Close() error {
	if c, ok := l.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
