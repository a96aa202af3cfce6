package httpkit

import "net/http"

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, Call(h))
}

// Post mounts a body-less handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, Call(h))
}

// PostJSON mounts a handler under POST that receives the bound body
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, Call(func(req *http.Request) (any, error) {
		in, err := Bind[T](req)
		if err != nil {
			return nil, err
		}
		return h(req, in)
	}))
}
