// body/body.go

// Package body defines the streaming body contract used by the bodylimit
// middleware and proxy, and the body types that implement it.
//
// A Body hands out its content one chunk at a time. Callers keep calling
// Data until it returns io.EOF, then may call Trailers once. IsEndStream and
// SizeHint are side-effect-free queries that may be called at any time.
//
// A Body is read by exactly one caller. None of the types in this package are
// safe for concurrent use by multiple goroutines.
package body

import (
	"context"
	"net/http"
	"strconv"
)

// Body is a stream of byte chunks optionally followed by trailers.
type Body interface {
	// Data returns the next chunk of the body. It returns (nil, io.EOF) once
	// no more chunks will be produced. Any other non-nil error is an error
	// of the underlying source. A call that cannot complete yet blocks until
	// data is ready or ctx is done.
	//
	// Ownership of a returned chunk passes to the caller.
	Data(ctx context.Context) ([]byte, error)

	// Trailers returns the trailers that follow the last chunk, or
	// (nil, nil) when there are none.
	Trailers(ctx context.Context) (http.Header, error)

	// IsEndStream reports whether the body is known to produce no more
	// chunks. A false result does not guarantee that more data follows.
	IsEndStream() bool

	// SizeHint returns the bounds on the number of bytes still to come.
	SizeHint() SizeHint
}

// SizeHint describes the remaining length of a body: a lower bound and an
// optional upper bound. When both are equal the length is exact.
//
// A SizeHint is an estimate used for framing (Content-Length) and buffer
// sizing, not a promise the body is checked against.
type SizeHint struct {
	lower    uint64
	upper    uint64
	hasUpper bool
}

// Unbounded returns a SizeHint with a lower bound of zero and no upper bound.
func Unbounded() SizeHint {
	return SizeHint{}
}

// Exact returns a SizeHint for a body of exactly n bytes.
func Exact(n uint64) SizeHint {
	return SizeHint{lower: n, upper: n, hasUpper: true}
}

// Between returns a SizeHint with the given bounds. If upper is less than
// lower, upper is raised to lower.
func Between(lower, upper uint64) SizeHint {
	if upper < lower {
		upper = lower
	}
	return SizeHint{lower: lower, upper: upper, hasUpper: true}
}

// AtLeast returns a SizeHint with the given lower bound and no upper bound.
func AtLeast(lower uint64) SizeHint {
	return SizeHint{lower: lower}
}

// Lower returns the lower bound.
func (h SizeHint) Lower() uint64 { return h.lower }

// Upper returns the upper bound and whether one is known.
func (h SizeHint) Upper() (uint64, bool) { return h.upper, h.hasUpper }

// Exact returns the exact length if the bounds agree.
func (h SizeHint) Exact() (uint64, bool) {
	if h.hasUpper && h.lower == h.upper {
		return h.lower, true
	}
	return 0, false
}

func (h SizeHint) String() string {
	if n, ok := h.Exact(); ok {
		return strconv.FormatUint(n, 10)
	}
	if !h.hasUpper {
		return strconv.FormatUint(h.lower, 10) + "..."
	}
	return strconv.FormatUint(h.lower, 10) + "..." + strconv.FormatUint(h.upper, 10)
}
