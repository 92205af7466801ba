package body

import (
	"context"
	"io"
	"net/http"
	"testing"
)

// step is one scripted result of a Data call.
type step struct {
	chunk []byte
	err   error
}

// scriptedBody replays a fixed sequence of Data results and records how it
// was called.
type scriptedBody struct {
	steps      []step
	trailers   http.Header
	trailerErr error
	ended      bool
	hint       SizeHint

	dataCalls    int
	trailerCalls int
	closed       bool
}

func chunks(parts ...string) *scriptedBody {
	s := &scriptedBody{hint: Unbounded()}
	for _, p := range parts {
		s.steps = append(s.steps, step{chunk: []byte(p)})
	}
	return s
}

func (s *scriptedBody) Data(context.Context) ([]byte, error) {
	s.dataCalls++
	if len(s.steps) == 0 {
		s.ended = true
		return nil, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	return st.chunk, st.err
}

func (s *scriptedBody) Trailers(context.Context) (http.Header, error) {
	s.trailerCalls++
	return s.trailers, s.trailerErr
}

func (s *scriptedBody) IsEndStream() bool { return s.ended }

func (s *scriptedBody) SizeHint() SizeHint { return s.hint }

func (s *scriptedBody) Close() error {
	s.closed = true
	return nil
}

// blockingBody blocks in Data until its context is done.
type blockingBody struct{}

func (blockingBody) Data(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingBody) Trailers(ctx context.Context) (http.Header, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingBody) IsEndStream() bool { return false }

func (blockingBody) SizeHint() SizeHint { return Unbounded() }

// readAll drains b and returns its chunks as strings.
func readAll(t *testing.T, b Body) []string {
	t.Helper()
	var out []string
	for i := 0; i < 1000; i++ {
		chunk, err := b.Data(context.Background())
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Data() error = %v", err)
		}
		out = append(out, string(chunk))
	}
	t.Fatal("body did not end after 1000 chunks")
	return nil
}

func TestSizeHint(t *testing.T) {
	tests := []struct {
		name      string
		hint      SizeHint
		lower     uint64
		upper     uint64
		hasUpper  bool
		exact     uint64
		isExact   bool
		formatted string
	}{
		{"unbounded", Unbounded(), 0, 0, false, 0, false, "0..."},
		{"exact", Exact(22), 22, 22, true, 22, true, "22"},
		{"exact zero", Exact(0), 0, 0, true, 0, true, "0"},
		{"between", Between(3, 10), 3, 10, true, 0, false, "3...10"},
		{"between inverted", Between(10, 3), 10, 10, true, 10, true, "10"},
		{"at least", AtLeast(5), 5, 0, false, 0, false, "5..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hint.Lower(); got != tt.lower {
				t.Errorf("Lower() = %d, want %d", got, tt.lower)
			}
			upper, ok := tt.hint.Upper()
			if ok != tt.hasUpper || (ok && upper != tt.upper) {
				t.Errorf("Upper() = (%d, %v), want (%d, %v)", upper, ok, tt.upper, tt.hasUpper)
			}
			exact, ok := tt.hint.Exact()
			if ok != tt.isExact || exact != tt.exact {
				t.Errorf("Exact() = (%d, %v), want (%d, %v)", exact, ok, tt.exact, tt.isExact)
			}
			if got := tt.hint.String(); got != tt.formatted {
				t.Errorf("String() = %q, want %q", got, tt.formatted)
			}
		})
	}
}

func TestFull(t *testing.T) {
	b := Full([]byte("hello"))
	if b.IsEndStream() {
		t.Fatal("IsEndStream() = true before reading")
	}
	if n, ok := b.SizeHint().Exact(); !ok || n != 5 {
		t.Errorf("SizeHint() = %v, want 5", b.SizeHint())
	}
	got := readAll(t, b)
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("chunks = %q, want [\"hello\"]", got)
	}
	if !b.IsEndStream() {
		t.Error("IsEndStream() = false after reading")
	}
	if n, ok := b.SizeHint().Exact(); !ok || n != 0 {
		t.Errorf("SizeHint() after read = %v, want 0", b.SizeHint())
	}
}

func TestEmpty(t *testing.T) {
	b := Empty()
	if !b.IsEndStream() {
		t.Error("IsEndStream() = false, want true")
	}
	if got := readAll(t, b); len(got) != 0 {
		t.Errorf("chunks = %q, want none", got)
	}
	if got := readAll(t, Full(nil)); len(got) != 0 {
		t.Errorf("Full(nil) chunks = %q, want none", got)
	}
}
