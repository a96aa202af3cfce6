package httpkit

import (
	"net/http"
	"time"

	"reviewprep/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string      // empty allows any origin
	Timeout     time.Duration // per request; <=0 -> 60s
	Slow        time.Duration // access log warn threshold; 0 disables
}

// CommonStack returns the middleware every API router mounts, outermost first
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	origins := o.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	stack := middleware.Defaults(o.Timeout)
	return append(stack,
		middleware.AccessLog(middleware.AccessLogOptions{Slow: o.Slow}),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: origins, MaxAge: 300}),
	)
}
