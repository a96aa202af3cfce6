package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "reviewprep/internal/platform/errors"
	pnet "reviewprep/internal/platform/net"
)

// Envelope wraps every response body. Errors fill Code, Error and Field;
// successes fill Data
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

func envelope(r *stdhttp.Request, status int) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     stdhttp.StatusText(status),
		RequestID:  pnet.RequestID(r.Context()),
	}
}

// JSON encodes v with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes err as an envelope with its mapped status
func RespondError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	env := envelope(r, perr.HTTPStatus(err))
	wire := perr.WireFrom(err)
	env.Code, env.Error, env.Field = wire.Code, wire.Message, wire.Field
	JSON(w, env.StatusCode, env)
}

// Response is what return style handlers produce. An error Body is
// written as an error envelope; Status 0 means 200
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// Handle turns a return style handler into a net/http handler
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		res := h(r)
		for k, vs := range res.Header {
			w.Header()[k] = append(w.Header()[k], vs...)
		}
		if err, ok := res.Body.(error); ok && err != nil {
			RespondError(w, r, err)
			return
		}
		status := max(res.Status, stdhttp.StatusOK)
		if status == stdhttp.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		env := envelope(r, status)
		env.Data = res.Body
		JSON(w, status, env)
	}
}

func OK(data any) Response       { return Response{Status: stdhttp.StatusOK, Body: data} }
func Accepted(data any) Response { return Response{Status: stdhttp.StatusAccepted, Body: data} }
func Error(err error) Response   { return Response{Body: err} }
