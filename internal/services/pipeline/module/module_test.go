package module

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"reviewprep/internal/modkit"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/config"
	phttp "reviewprep/internal/platform/net/http"
	"reviewprep/internal/platform/testkit"
)

func TestFromConfig_DefaultsAndOverrides(t *testing.T) {
	o := FromConfig(config.New())
	if o.DataDir != "data" || o.Retries != 1 || o.RetryDelay != 5*time.Minute || o.Schedule != "0 * * * *" {
		t.Fatalf("defaults = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	t.Setenv("RP_PIPELINE_DATA_DIR", "/srv/data")
	t.Setenv("RP_PIPELINE_RETRIES", "3")
	t.Setenv("RP_PIPELINE_RETRY_DELAY", "2s")
	t.Setenv("RP_SCHEDULE_SPEC", "@every 30m")
	o = FromConfig(config.New())
	if o.DataDir != "/srv/data" || o.Retries != 3 || o.RetryDelay != 2*time.Second || o.Schedule != "@every 30m" {
		t.Fatalf("overrides = %+v", o)
	}
}

func TestOptions_Validate(t *testing.T) {
	base := FromConfig(config.New())
	tests := []struct {
		name  string
		mut   func(*Options)
		field string
	}{
		{"empty data dir", func(o *Options) { o.DataDir = "" }, "data_dir"},
		{"negative retries", func(o *Options) { o.Retries = -1 }, "retries"},
		{"negative delay", func(o *Options) { o.RetryDelay = -time.Second }, "retry_delay"},
		{"empty schedule", func(o *Options) { o.Schedule = "" }, "schedule"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := base
			tc.mut(&o)
			err := o.Validate()
			if perr.CodeOf(err) != perr.ErrorCodeValidation {
				t.Fatalf("err = %v", err)
			}
			if e, ok := perr.As(err); !ok || e.Field() != tc.field {
				t.Fatalf("field = %v", err)
			}
		})
	}
}

func TestDefaultDatasets(t *testing.T) {
	ds := DefaultDatasets("/d")
	if len(ds) != 2 {
		t.Fatalf("datasets = %d", len(ds))
	}
	if ds[0].RawPath != "/d/software_reviews.jsonl.gz" || ds[0].CleanPath != "/d/software_reviews_preprocessed.jsonl" {
		t.Fatalf("reviews = %+v", ds[0])
	}
	if ds[1].RawPath != "/d/software_metadata.jsonl.gz" || ds[1].CleanPath != "/d/software_metadata_preprocessed.jsonl" {
		t.Fatalf("metadata = %+v", ds[1])
	}
	testkit.MustContain(t, ds[1].URL, "meta_categories/meta_Software.jsonl.gz")
	if err := validate(manifest{Datasets: ds}, "datasets"); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "datasets.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDatasets(t *testing.T) {
	p := writeManifest(t, `
datasets:
  - name: books
    url: https://example.com/books.jsonl.gz
    raw: books.jsonl.gz
    clean: /abs/books_clean.jsonl
`)
	ds, err := LoadDatasets(p, "/data")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds) != 1 || ds[0].RawPath != "/data/books.jsonl.gz" || ds[0].CleanPath != "/abs/books_clean.jsonl" {
		t.Fatalf("datasets = %+v", ds)
	}
}

func TestLoadDatasets_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code perr.ErrorCode
	}{
		{"empty list", "datasets: []\n", perr.ErrorCodeValidation},
		{"unknown field", "datasets:\n  - name: a\n    link: x\n", perr.ErrorCodeValidation},
		{"bad name", "datasets:\n  - {name: 'My Books', url: 'http://x/a', raw: a.gz, clean: a.jsonl}\n", perr.ErrorCodeValidation},
		{"bad url", "datasets:\n  - {name: a, url: nope, raw: a.gz, clean: a.jsonl}\n", perr.ErrorCodeValidation},
		{"same raw and clean", "datasets:\n  - {name: a, url: 'http://x/a', raw: a, clean: a}\n", perr.ErrorCodeValidation},
		{"duplicate names", "datasets:\n  - {name: a, url: 'http://x/a', raw: a.gz, clean: a.jsonl}\n  - {name: a, url: 'http://x/b', raw: b.gz, clean: b.jsonl}\n", perr.ErrorCodeValidation},
		{"shared path", "datasets:\n  - {name: a, url: 'http://x/a', raw: a.gz, clean: c.jsonl}\n  - {name: b, url: 'http://x/b', raw: b.gz, clean: c.jsonl}\n", perr.ErrorCodeValidation},
		{"not yaml", "datasets: [\n", perr.ErrorCodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadDatasets(writeManifest(t, tc.body), "/data")
			if perr.CodeOf(err) != tc.code {
				t.Fatalf("err = %v (code %v)", err, perr.CodeOf(err))
			}
		})
	}

	_, err := LoadDatasets(filepath.Join(t.TempDir(), "missing.yaml"), "/data")
	if perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestNew_MemoryLedgerAndRoutes(t *testing.T) {
	t.Setenv("RP_PIPELINE_DATA_DIR", t.TempDir())
	t.Setenv("RP_PUBLISH_S3_BUCKET", "")

	m, err := New(context.Background(), modkit.Deps{Cfg: config.New()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	p, ok := modkit.PortsOf[Ports](m)
	if !ok {
		t.Fatalf("ports type = %T", m.Ports())
	}
	if p.Runner == nil || p.Ledger == nil || p.Fetcher == nil || p.Processor == nil || p.Verifier == nil {
		t.Fatalf("ports = %+v", p)
	}
	if p.Publisher != nil {
		t.Fatalf("publisher wired without a bucket")
	}
	if m.Name() != "pipeline" || len(m.Datasets()) != 2 || m.Scheduler().Spec() != "0 * * * *" {
		t.Fatalf("module = %s %d %s", m.Name(), len(m.Datasets()), m.Scheduler().Spec())
	}

	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	for path, want := range map[string]int{
		"/healthz":     http.StatusOK,
		"/runs":        http.StatusOK,
		"/runs/latest": http.StatusNotFound,
		"/metrics":     http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s status = %d want %d", path, rec.Code, want)
		}
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	t.Setenv("RP_SCHEDULE_SPEC", "every tuesday")
	if _, err := New(context.Background(), modkit.Deps{Cfg: config.New()}); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("bad schedule err = %v", err)
	}

	t.Setenv("RP_SCHEDULE_SPEC", "")
	t.Setenv("RP_PIPELINE_DATASETS_FILE", filepath.Join(t.TempDir(), "none.yaml"))
	if _, err := New(context.Background(), modkit.Deps{Cfg: config.New()}); perr.CodeOf(err) != perr.ErrorCodeNotFound {
		t.Fatalf("missing manifest err = %v", err)
	}
}
