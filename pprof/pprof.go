// pprof/pprof.go
package pprof

import (
	"net/http"
	stdpprof "net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// Prefix is where the profiling handlers are mounted.
const Prefix = "/debug/pprof"

// Mount attaches the Go profiling handlers under Prefix, every one of them
// behind guard. Profiles expose the command line (upstream URL and API key
// flags included) and heap contents, so there is no unguarded form; Mount
// panics if guard is nil.
//
// The profile and trace handlers read their duration from ?seconds=. Those
// requests outlive the server's write_timeout unless it is raised.
func Mount(r chi.Router, guard func(http.Handler) http.Handler) {
	if guard == nil {
		panic("pprof: Mount requires a guard middleware")
	}
	r.Route(Prefix, func(r chi.Router) {
		r.Use(guard)
		r.Get("/", stdpprof.Index)
		r.Get("/cmdline", stdpprof.Cmdline)
		r.Get("/profile", stdpprof.Profile)
		r.Get("/symbol", stdpprof.Symbol)
		r.Post("/symbol", stdpprof.Symbol)
		r.Get("/trace", stdpprof.Trace)
		// heap, goroutine, allocs, block, mutex, threadcreate
		r.Get("/{name}", stdpprof.Index)
	})
}
