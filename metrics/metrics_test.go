package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRejection(t *testing.T) {
	c := rejections.WithLabelValues(DirectionResponse, ReasonStream)
	before := testutil.ToFloat64(c)

	RecordRejection(DirectionResponse, ReasonStream)
	RecordRejection(DirectionResponse, ReasonStream)

	if got := testutil.ToFloat64(c) - before; got != 2 {
		t.Errorf("counter delta = %v, want 2", got)
	}
}

func TestHTTPMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetrics)
	r.Post("/upload/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	})

	before := testutil.CollectAndCount(reqDuration)
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/upload/"+id, nil))
	}

	// Three requests to one pattern make one series.
	if got := testutil.CollectAndCount(reqDuration) - before; got != 1 {
		t.Errorf("new series = %d, want 1", got)
	}
}

func TestRegisterDefault_Idempotent(t *testing.T) {
	RegisterDefault(nil)
	RegisterDefault(nil)
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{"short", "abc", 10, "abc"},
		{"cut ascii", "abcdef", 3, "abc"},
		{"no split rune", "abécd", 3, "ab"},
		{"zero", "abc", 0, ""},
		{"long", strings.Repeat("a", 300), 253, strings.Repeat("a", 253)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateUTF8(tt.s, tt.max); got != tt.want {
				t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}
