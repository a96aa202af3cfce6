package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	perr "reviewprep/internal/platform/errors"
)

func TestDownload_WritesFileAndSidecar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != defaultUserAgent {
			t.Errorf("user agent = %q", ua)
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2023 15:04:05 GMT")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "raw", "data.jsonl.gz")
	d, err := New().Download(context.Background(), srv.URL+"/data", dest)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if d.Bytes != 7 || d.Status != http.StatusOK || d.NotModified || d.ETag != `"v1"` {
		t.Fatalf("download = %+v", d)
	}
	b, err := os.ReadFile(dest)
	if err != nil || string(b) != "payload" {
		t.Fatalf("dest = %q, %v", b, err)
	}
	m, err := loadMeta(dest + ".meta")
	if err != nil || m.ETag != `"v1"` || m.Size != 7 || m.URL != srv.URL+"/data" {
		t.Fatalf("meta = %+v, %v", m, err)
	}
	if _, err := os.Stat(dest + ".part"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("part file left behind: %v", err)
	}
}

func TestDownload_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   perr.ErrorCode
		retry  bool
	}{
		{http.StatusNotFound, perr.ErrorCodeNotFound, false},
		{http.StatusBadRequest, perr.ErrorCodeInvalidArgument, false},
		{http.StatusForbidden, perr.ErrorCodeForbidden, false},
		{http.StatusTooManyRequests, perr.ErrorCodeTooManyRequests, true},
		{http.StatusBadGateway, perr.ErrorCodeUnavailable, true},
		{http.StatusServiceUnavailable, perr.ErrorCodeUnavailable, true},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "data.gz")
			if err := os.WriteFile(dest, []byte("old"), 0o600); err != nil {
				t.Fatal(err)
			}
			d, err := New().Download(context.Background(), srv.URL, dest)
			if err == nil {
				t.Fatalf("expected error")
			}
			if perr.CodeOf(err) != tc.code {
				t.Fatalf("code = %v want %v", perr.CodeOf(err), tc.code)
			}
			if perr.Retryable(err) != tc.retry {
				t.Fatalf("retryable = %v want %v", perr.Retryable(err), tc.retry)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Status != tc.status || d.Status != tc.status {
				t.Fatalf("status error = %+v, download = %+v", se, d)
			}
			if b, _ := os.ReadFile(dest); string(b) != "old" {
				t.Fatalf("dest overwritten: %q", b)
			}
		})
	}
}

func TestDownload_RevalidateNotModified(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("first"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data.gz")
	f := New(WithRevalidate(true), WithTimeout(5*time.Second))
	if _, err := f.Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("first: %v", err)
	}
	d, err := f.Download(context.Background(), srv.URL, dest)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !d.NotModified || d.Bytes != 5 {
		t.Fatalf("download = %+v", d)
	}
	if hits.Load() != 2 || conditional.Load() != 1 {
		t.Fatalf("hits=%d conditional=%d", hits.Load(), conditional.Load())
	}
	if b, _ := os.ReadFile(dest); string(b) != "first" {
		t.Fatalf("dest = %q", b)
	}
}

func TestDownload_NoRevalidateRefetches(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			t.Errorf("unexpected conditional header")
		}
		w.Header().Set("ETag", `"v1"`)
		if n.Add(1) == 1 {
			_, _ = w.Write([]byte("one"))
			return
		}
		_, _ = w.Write([]byte("two"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data.gz")
	f := New()
	for range 2 {
		if _, err := f.Download(context.Background(), srv.URL, dest); err != nil {
			t.Fatalf("download: %v", err)
		}
	}
	if b, _ := os.ReadFile(dest); string(b) != "two" {
		t.Fatalf("dest = %q", b)
	}
}

func TestDownload_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dest := filepath.Join(t.TempDir(), "data.gz")
	if _, err := New().Download(ctx, srv.URL, dest); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dest created: %v", err)
	}
}
