package middleware

import (
	"net/http"
	"runtime/debug"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
	pnet "reviewprep/internal/platform/net"
	phttp "reviewprep/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into a 500 envelope and logs the stack
// with the request id. http.ErrAbortHandler is re-raised
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(logger.WithRequest(r.Context(), reqID)).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			phttp.RespondError(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
