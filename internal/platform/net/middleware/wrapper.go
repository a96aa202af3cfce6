// Package middleware holds the http middleware the status API mounts.
// chi types stay behind these constructors
package middleware

import (
	"compress/flate"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware is the handler decorator shape used throughout
type Middleware = func(http.Handler) http.Handler

// RequestID attaches or propagates X-Request-ID and stores it on context
func RequestID() Middleware { return chimw.RequestID }

// RealIP sets RemoteAddr from X-Forwarded-For / X-Real-IP
func RealIP() Middleware { return chimw.RealIP }

// Timeout cancels the request context after d
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

// NoCache disables client and proxy caching
func NoCache() Middleware { return chimw.NoCache }

// Compress wraps chi's compressor
func Compress(level int) Middleware {
	c := chimw.NewCompressor(level)
	return c.Handler
}

// Heartbeat answers GET path with 200 before routing
func Heartbeat(path string) Middleware { return chimw.Heartbeat(path) }

// CORSOptions is a narrow surface over go-chi/cors
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS wraps go-chi/cors, filling methods and headers when unset
func CORS(o CORSOptions) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: orDefault(o.AllowedMethods, []string{"GET", "POST", "OPTIONS"}),
		AllowedHeaders: orDefault(o.AllowedHeaders, []string{"Accept", "Content-Type", "X-Request-ID"}),
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         o.MaxAge,
	})
}

// Defaults is the bundle every API router starts with; order matters,
// RequestID must run before AccessLog and RecoverJSON
func Defaults(timeout time.Duration) []Middleware {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return []Middleware{
		RealIP(),
		RequestID(),
		RecoverJSON,
		Timeout(timeout),
		Compress(flate.DefaultCompression),
		NoCache(),
	}
}

func orDefault(in, def []string) []string {
	if len(in) == 0 {
		return def
	}
	return in
}
