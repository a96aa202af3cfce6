package module

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/services/pipeline/domain"
)

const amazonBase = "https://mcauleylab.ucsd.edu/public_datasets/data/amazon_2023/raw"

// DefaultDatasets returns the Amazon 2023 Software reviews and metadata under dir
func DefaultDatasets(dir string) []domain.Dataset {
	return resolve(dir, []domain.Dataset{
		{
			Name:      "reviews",
			URL:       amazonBase + "/review_categories/Software.jsonl.gz",
			RawPath:   "software_reviews.jsonl.gz",
			CleanPath: "software_reviews_preprocessed.jsonl",
		},
		{
			Name:      "metadata",
			URL:       amazonBase + "/meta_categories/meta_Software.jsonl.gz",
			RawPath:   "software_metadata.jsonl.gz",
			CleanPath: "software_metadata_preprocessed.jsonl",
		},
	})
}

// ResolveDatasets returns the manifest datasets when opts names one, else the defaults
func ResolveDatasets(opts Options) ([]domain.Dataset, error) {
	if opts.DatasetsFile == "" {
		return DefaultDatasets(opts.DataDir), nil
	}
	return LoadDatasets(opts.DatasetsFile, opts.DataDir)
}

// manifest is the YAML datasets file
//
//	datasets:
//	  - name: reviews
//	    url: https://example.com/reviews.jsonl.gz
//	    raw: reviews.jsonl.gz
//	    clean: reviews_preprocessed.jsonl
type manifest struct {
	Datasets []domain.Dataset `yaml:"datasets" json:"datasets" validate:"required,min=1,unique=Name,dive"`
}

// LoadDatasets reads a YAML manifest. Relative paths resolve against dir
func LoadDatasets(path, dir string) ([]domain.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "datasets: %s not found", path)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "datasets: read %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var m manifest
	if err := dec.Decode(&m); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "datasets: parse %s", path)
	}
	if err := validate(m, "datasets"); err != nil {
		return nil, err
	}
	ds := resolve(dir, m.Datasets)
	seen := make(map[string]string, 2*len(ds))
	for _, d := range ds {
		for _, p := range []string{d.RawPath, d.CleanPath} {
			if other, ok := seen[p]; ok {
				return nil, perr.Newf(perr.ErrorCodeValidation, "datasets: %s and %s share path %s", other, d.Name, p)
			}
			seen[p] = d.Name
		}
	}
	return ds, nil
}

func resolve(dir string, in []domain.Dataset) []domain.Dataset {
	out := make([]domain.Dataset, len(in))
	for i, d := range in {
		if !filepath.IsAbs(d.RawPath) {
			d.RawPath = filepath.Join(dir, d.RawPath)
		}
		if !filepath.IsAbs(d.CleanPath) {
			d.CleanPath = filepath.Join(dir, d.CleanPath)
		}
		out[i] = d
	}
	return out
}
