// version/version.go
package version

import (
	"net/http"
	"runtime"

	"github.com/dalemusser/bodylimit/httputil"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/dalemusser/bodylimit/version.Version=1.0.0 \
//	                   -X github.com/dalemusser/bodylimit/version.Commit=abc123"
var (
	Version = "dev"
	Commit  = "unknown"
)

// Info is the JSON body of GET /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`

	// Active limits in bytes; 0 means unlimited.
	MaxRequestBodyBytes  int64 `json:"max_request_body_bytes"`
	MaxResponseBodyBytes int64 `json:"max_response_body_bytes"`
}

// Get returns build info together with the configured limits.
func Get(maxRequest, maxResponse int64) Info {
	return Info{
		Version:              Version,
		Commit:               Commit,
		GoVersion:            runtime.Version(),
		MaxRequestBodyBytes:  maxRequest,
		MaxResponseBodyBytes: maxResponse,
	}
}

// Handler answers with Get(maxRequest, maxResponse) as JSON.
func Handler(maxRequest, maxResponse int64) http.Handler {
	info := Get(maxRequest, maxResponse)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, info)
	})
}

// String returns "dev" or "1.2.3 (abc123)".
func String() string {
	if Version == "dev" {
		return "dev"
	}
	return Version + " (" + Commit + ")"
}
