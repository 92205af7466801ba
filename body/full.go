// body/full.go
package body

import (
	"context"
	"io"
	"net/http"
)

// FullBody is a body whose content is already in memory. It yields its bytes
// as one chunk.
type FullBody struct {
	data []byte
}

// Full returns a body that yields p as a single chunk. An empty p produces an
// ended body with no chunks.
func Full(p []byte) *FullBody {
	if len(p) == 0 {
		return &FullBody{}
	}
	return &FullBody{data: p}
}

// Empty returns a body with no chunks.
func Empty() *FullBody {
	return &FullBody{}
}

func (f *FullBody) Data(context.Context) ([]byte, error) {
	data := f.data
	f.data = nil
	if data == nil {
		return nil, io.EOF
	}
	return data, nil
}

func (f *FullBody) Trailers(context.Context) (http.Header, error) { return nil, nil }

func (f *FullBody) IsEndStream() bool { return f.data == nil }

func (f *FullBody) SizeHint() SizeHint { return Exact(uint64(len(f.data))) }
