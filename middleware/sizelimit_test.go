package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/bodylimit/body"
	"github.com/dalemusser/bodylimit/config"
)

// echo reads the whole body and writes it back, answering 413 if the limit
// is crossed while reading.
func echo(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		data, err := io.ReadAll(r.Body)
		if WriteTooLarge(w, r, err) {
			return
		}
		if err != nil {
			t.Errorf("unexpected read error: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(data)
	})
}

func assertTooLarge(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want %q", got, "text/plain; charset=utf-8")
	}
	if got := rec.Body.String(); got != "length limit exceeded" {
		t.Errorf("body = %q, want %q", got, "length limit exceeded")
	}
}

func TestLimitBodySize_ContentLengthOverLimit(t *testing.T) {
	var called bool
	h := LimitBodySize(10, nil)(echo(t, &called))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is definitely larger than ten bytes"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assertTooLarge(t, rec)
	if called {
		t.Error("next handler was called for an oversize Content-Length")
	}
	if got := rec.Header().Get("Content-Length"); got != "22" {
		t.Errorf("Content-Length = %q, want %q", got, "22")
	}
}

func TestLimitBodySize_StreamOverLimit(t *testing.T) {
	var called bool
	h := LimitBodySize(10, nil)(echo(t, &called))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this body is definitely larger than ten bytes"))
	req.ContentLength = -1 // chunked: nothing to check up front
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("next handler was not called")
	}
	assertTooLarge(t, rec)
}

func TestLimitBodySize_WithinLimit(t *testing.T) {
	tests := []struct {
		name          string
		payload       string
		contentLength int64
	}{
		{"known length", "small", 5},
		{"exactly at limit", "0123456789", 10},
		{"unknown length", "small", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			h := LimitBodySize(10, nil)(echo(t, &called))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if got := rec.Body.String(); got != tt.payload {
				t.Errorf("body = %q, want %q", got, tt.payload)
			}
		})
	}
}

func TestLimitBodySize_NoLimitWhenZero(t *testing.T) {
	var seen io.ReadCloser
	h := LimitBodySize(0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Body
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1<<10)))
	original := req.Body
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != original {
		t.Error("body was wrapped although the limit is disabled")
	}
}

func TestLimitBodySize_NoBody(t *testing.T) {
	var called bool
	h := LimitBodySize(10, nil)(echo(t, &called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d; want a normal response", called, rec.Code)
	}
}

func TestWriteTooLarge_OtherErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	for _, err := range []error{nil, io.ErrUnexpectedEOF, errors.New("boom")} {
		if WriteTooLarge(rec, req, err) {
			t.Errorf("WriteTooLarge(%v) = true, want false", err)
		}
	}
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Error("WriteTooLarge wrote a response for an unrelated error")
	}

	if !WriteTooLarge(rec, req, &body.LengthLimitError{Limit: 1}) {
		t.Fatal("WriteTooLarge(*LengthLimitError) = false")
	}
	assertTooLarge(t, rec)
}

func TestCORSFromConfig(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("disabled", func(t *testing.T) {
		h := CORSFromConfig(config.CORSConfig{})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://a.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		h := CORSFromConfig(config.CORSConfig{
			EnableCORS:         true,
			CORSAllowedOrigins: []string{"https://a.example"},
			CORSAllowedMethods: []string{http.MethodGet, http.MethodPost},
		})(next)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://a.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://a.example" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://a.example")
		}
	})
}

func TestNotFoundHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), `"not_found"`) {
		t.Errorf("body = %s, want a not_found error code", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	MethodNotAllowedHandler(nil)(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
