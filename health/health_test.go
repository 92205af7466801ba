package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandler_NoChecks(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(nil, 0, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decode(t, rec); got.Status != "ok" || len(got.Checks) != 0 {
		t.Errorf("response = %+v, want bare ok", got)
	}
}

func TestHandler_Checks(t *testing.T) {
	ok := func(context.Context) error { return nil }
	bad := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Check
		wantStatus int
		wantBody   Response
	}{
		{
			name:       "all pass",
			checks:     map[string]Check{"upstream": ok, "nil": nil},
			wantStatus: http.StatusOK,
			wantBody:   Response{Status: "ok", Checks: map[string]string{"upstream": "ok", "nil": "ok"}},
		},
		{
			name:       "one fails",
			checks:     map[string]Check{"upstream": bad, "other": ok},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: Response{Status: "error", Checks: map[string]string{
				"upstream": "error: connection refused",
				"other":    "ok",
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(tt.checks, time.Second, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := decode(t, rec)
			if got.Status != tt.wantBody.Status {
				t.Errorf("status field = %q, want %q", got.Status, tt.wantBody.Status)
			}
			for name, want := range tt.wantBody.Checks {
				if got.Checks[name] != want {
					t.Errorf("checks[%q] = %q, want %q", name, got.Checks[name], want)
				}
			}
		})
	}
}

func TestHandler_Timeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	rec := httptest.NewRecorder()
	Handler(map[string]Check{"slow": slow}, 10*time.Millisecond, nil).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestMount(t *testing.T) {
	r := chi.NewRouter()
	Mount(r, map[string]Check{"down": func(context.Context) error { return errors.New("down") }}, time.Second, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
