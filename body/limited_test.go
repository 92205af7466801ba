package body

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
)

func TestLimited_WithinLimit(t *testing.T) {
	b := Limited(chunks("ab", "cd"), 4)
	got := readAll(t, b)
	if len(got) != 2 || got[0] != "ab" || got[1] != "cd" {
		t.Errorf("chunks = %q, want [\"ab\" \"cd\"]", got)
	}
	if b.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", b.Remaining())
	}
}

func TestLimited_Exceeded(t *testing.T) {
	b := Limited(chunks("ab", "cd", "ef"), 3)

	chunk, err := b.Data(context.Background())
	if err != nil || string(chunk) != "ab" {
		t.Fatalf("Data() = (%q, %v), want (\"ab\", nil)", chunk, err)
	}

	for i := 0; i < 2; i++ {
		chunk, err = b.Data(context.Background())
		if chunk != nil {
			t.Errorf("Data() chunk = %q, want nil once the limit is crossed", chunk)
		}
		var le *LengthLimitError
		if !errors.As(err, &le) {
			t.Fatalf("Data() error = %v, want *LengthLimitError", err)
		}
		if le.Limit != 3 {
			t.Errorf("Limit = %d, want 3", le.Limit)
		}
	}

	if b.IsEndStream() {
		t.Error("IsEndStream() = true after the limit was crossed")
	}
	if _, err := b.Trailers(context.Background()); !IsLengthLimitError(err) {
		t.Errorf("Trailers() error = %v, want *LengthLimitError", err)
	}
}

func TestLimited_ZeroLimit(t *testing.T) {
	b := Limited(chunks("a"), -5)
	if _, err := b.Data(context.Background()); !IsLengthLimitError(err) {
		t.Errorf("Data() error = %v, want *LengthLimitError", err)
	}

	empty := Limited(Empty(), 0)
	if _, err := empty.Data(context.Background()); err != io.EOF {
		t.Errorf("Data() on empty body error = %v, want io.EOF", err)
	}
}

func TestLimited_ForwardsInnerErrors(t *testing.T) {
	errBoom := errors.New("boom")
	b := Limited(&scriptedBody{steps: []step{{err: errBoom}}}, 10)
	if _, err := b.Data(context.Background()); err != errBoom {
		t.Errorf("Data() error = %v, want %v", err, errBoom)
	}
}

func TestLimited_Trailers(t *testing.T) {
	inner := chunks("a")
	inner.trailers = http.Header{"X-Sum": []string{"1"}}
	b := Limited(inner, 10)
	_ = readAll(t, b)

	tr, err := b.Trailers(context.Background())
	if err != nil || tr.Get("X-Sum") != "1" {
		t.Errorf("Trailers() = (%v, %v), want X-Sum: 1", tr, err)
	}
}

func TestLimited_SizeHint(t *testing.T) {
	tests := []struct {
		name  string
		inner SizeHint
		limit int64
		want  SizeHint
	}{
		{"unbounded inner", Unbounded(), 10, Between(0, 10)},
		{"exact within limit", Exact(4), 10, Exact(4)},
		{"exact over limit", Exact(40), 10, Exact(10)},
		{"range capped", Between(2, 50), 10, Between(2, 10)},
		{"range within", Between(2, 5), 10, Between(2, 5)},
		{"lower at limit", AtLeast(10), 10, Exact(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Limited(&scriptedBody{hint: tt.inner}, tt.limit)
			if got := b.SizeHint(); got != tt.want {
				t.Errorf("SizeHint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLimited_Close(t *testing.T) {
	inner := chunks("a")
	if err := Limited(inner, 1).Close(); err != nil || !inner.closed {
		t.Errorf("Close() = %v, inner closed = %v", err, inner.closed)
	}
}

func TestIsLengthLimitError(t *testing.T) {
	le := &LengthLimitError{Limit: 8}
	if !IsLengthLimitError(le) {
		t.Error("IsLengthLimitError(*LengthLimitError) = false")
	}
	if !IsLengthLimitError(fmt.Errorf("read body: %w", le)) {
		t.Error("IsLengthLimitError(wrapped) = false")
	}
	if IsLengthLimitError(io.EOF) || IsLengthLimitError(nil) {
		t.Error("IsLengthLimitError matched an unrelated error")
	}
	if got, want := le.Error(), "body: length limit of 8 bytes exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
