// Package fetch downloads dataset files to disk.
// Bodies stream into a .part file that is renamed over the destination only
// after a complete 200 response, and a .meta sidecar keeps the validators
// used for conditional GETs on later runs
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
)

const defaultUserAgent = "reviewprep-fetch/1"

// Download describes the outcome of one Download call
type Download struct {
	URL          string        `json:"url"`
	Path         string        `json:"path"`
	Status       int           `json:"status"`
	Bytes        int64         `json:"bytes"`
	NotModified  bool          `json:"not_modified"`
	ETag         string        `json:"etag,omitempty"`
	LastModified string        `json:"last_modified,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// StatusError is returned for any non-200 (and non-304) response
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d for %s", e.Status, e.URL)
}

// meta is the sidecar json kept next to each download
type meta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
	LastChecked  time.Time `json:"last_checked"`
}

// Option configures the fetcher
type Option func(*Fetcher)

// WithClient replaces the HTTP client
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the whole-request timeout; zero means none
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client = &http.Client{Timeout: d} }
}

// WithRevalidate sends If-None-Match and If-Modified-Since when the
// destination and its sidecar already exist
func WithRevalidate(on bool) Option {
	return func(f *Fetcher) { f.revalidate = on }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// Fetcher downloads URLs to local files
type Fetcher struct {
	client     *http.Client
	revalidate bool
	userAgent  string
}

// New builds a Fetcher
func New(opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{}, userAgent: defaultUserAgent}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Download fetches url into dest. On any failure dest is left untouched
func (f *Fetcher) Download(ctx context.Context, url, dest string) (Download, error) {
	start := time.Now()
	d := Download{URL: url, Path: dest}
	log := logger.C(ctx).With().Str("url", url).Str("dest", dest).Logger()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return d, perr.Wrapf(err, perr.ErrorCodeUnknown, "fetch: create dir for %s", dest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return d, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "fetch: bad request for %s", url)
	}
	req.Header.Set("User-Agent", f.userAgent)

	metaPath := dest + ".meta"
	var m *meta
	if f.revalidate {
		if fi, err := os.Stat(dest); err == nil && fi.Mode().IsRegular() {
			if m, _ = loadMeta(metaPath); m != nil && m.URL == url {
				if m.ETag != "" {
					req.Header.Set("If-None-Match", m.ETag)
				}
				if m.LastModified != "" {
					req.Header.Set("If-Modified-Since", m.LastModified)
				}
			} else {
				m = nil
			}
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return d, ctx.Err()
		}
		return d, perr.Wrapf(err, perr.ErrorCodeUnavailable, "fetch: request %s", url)
	}
	defer func() { _ = resp.Body.Close() }()
	d.Status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusNotModified && m != nil:
		m.LastChecked = time.Now().UTC()
		_ = saveMeta(metaPath, m)
		d.NotModified = true
		d.Bytes = m.Size
		d.ETag, d.LastModified = m.ETag, m.LastModified
		d.Elapsed = time.Since(start)
		log.Info().Msg("fetch: not modified, keeping local file")
		return d, nil

	case resp.StatusCode == http.StatusOK:
		n, err := writeAtomic(resp.Body, dest)
		if err != nil {
			if ctx.Err() != nil {
				return d, ctx.Err()
			}
			return d, perr.Wrapf(err, perr.ErrorCodeUnavailable, "fetch: store %s", url)
		}
		now := time.Now().UTC()
		nm := &meta{
			URL:          url,
			ETag:         strings.TrimSpace(resp.Header.Get("ETag")),
			LastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
			Size:         n,
			FetchedAt:    now,
			LastChecked:  now,
		}
		if err := saveMeta(metaPath, nm); err != nil {
			log.Warn().Err(err).Msg("fetch: could not write sidecar")
		}
		d.Bytes, d.ETag, d.LastModified = n, nm.ETag, nm.LastModified
		d.Elapsed = time.Since(start)
		log.Info().Int64("bytes", n).Dur("elapsed", d.Elapsed).Msg("fetch: downloaded")
		return d, nil

	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		serr := &StatusError{URL: url, Status: resp.StatusCode}
		log.Error().Int("status", resp.StatusCode).Msg("fetch: download failed")
		return d, perr.Wrap(serr, codeForStatus(resp.StatusCode), "fetch: download failed")
	}
}

// codeForStatus maps an HTTP status onto the project error codes
func codeForStatus(status int) perr.ErrorCode {
	switch {
	case status == http.StatusTooManyRequests:
		return perr.ErrorCodeTooManyRequests
	case status >= 500:
		return perr.ErrorCodeUnavailable
	case status == http.StatusNotFound, status == http.StatusGone:
		return perr.ErrorCodeNotFound
	case status == http.StatusUnauthorized:
		return perr.ErrorCodeUnauthorized
	case status == http.StatusForbidden:
		return perr.ErrorCodeForbidden
	default:
		return perr.ErrorCodeInvalidArgument
	}
}

// writeAtomic streams r into dest.part and renames it over dest
func writeAtomic(r io.Reader, dest string) (int64, error) {
	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}
	n, werr := io.Copy(out, r)
	cerr := out.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp)
		return n, werr
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return n, err
	}
	return n, nil
}

// loadMeta reads a sidecar json file
func loadMeta(path string) (*meta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m meta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// saveMeta writes the sidecar json atomically
func saveMeta(path string, m *meta) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
