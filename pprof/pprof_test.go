package pprof

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func requireHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Ops") != "yes" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func TestMount(t *testing.T) {
	r := chi.NewRouter()
	Mount(r, requireHeader)

	tests := []struct {
		path       string
		allowed    bool
		wantStatus int
	}{
		{"/debug/pprof/", true, http.StatusOK},
		{"/debug/pprof/cmdline", true, http.StatusOK},
		{"/debug/pprof/goroutine?debug=1", true, http.StatusOK},
		{"/debug/pprof/", false, http.StatusUnauthorized},
		{"/debug/pprof/cmdline", false, http.StatusUnauthorized},
		{"/debug/pprof/heap", false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.allowed {
			req.Header.Set("X-Ops", "yes")
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tt.wantStatus {
			t.Errorf("GET %s (allowed=%v): status = %d, want %d", tt.path, tt.allowed, rec.Code, tt.wantStatus)
		}
	}
}

func TestMount_NilGuard(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Mount(r, nil) did not panic")
		}
	}()
	Mount(chi.NewRouter(), nil)
}
