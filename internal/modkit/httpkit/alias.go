// Package httpkit provides handler and routing helpers that alias the platform http package
// use these from modules so they do not import internal/platform/net/http directly
package httpkit

import (
	"net/http"

	phttp "reviewprep/internal/platform/net/http"
	"reviewprep/internal/platform/net/http/bind"
)

type (
	// Response is the HTTP response type
	Response = phttp.Response
	// Handler is the platform handler type
	Handler = phttp.Handler
	// Router is a re-export of the platform router seam
	Router = phttp.Router
)

// maxBody caps JSON request bodies accepted by module endpoints
const maxBody = 64 << 10

// OK returns a 200 response
func OK(data any) Response { return phttp.OK(data) }

// Accepted returns a 202 response
func Accepted(data any) Response { return phttp.Accepted(data) }

// Error returns a response that maps an error to status and envelope
func Error(err error) Response { return phttp.Error(err) }

// Call adapts a value-or-error handler to the envelope writer. A returned
// Response passes through untouched
func Call(fn func(*http.Request) (any, error)) Handler {
	return phttp.Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return phttp.Error(err)
		}
		if resp, ok := out.(Response); ok {
			return resp
		}
		return phttp.OK(out)
	})
}

// Bind decodes and validates an optional JSON body into T. An empty body
// yields the zero T, which is still validated
func Bind[T any](r *http.Request) (T, error) {
	return bind.ParseJSON[T](r, bind.JSONOptions{
		MaxBytes:        maxBody,
		DisallowUnknown: true,
		AllowEmptyBody:  true,
	})
}

// Param returns a named path parameter
func Param(r *http.Request, name string) string { return phttp.Param(r, name) }
