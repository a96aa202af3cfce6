package ingest

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"reviewprep/internal/adapters/ingest/jsonl"
	"reviewprep/internal/core/record"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/services/pipeline/domain"
)

// Verifier re-reads a cleaned file and checks every record
type Verifier struct {
	// MaxViolations caps the violations kept in the report; <=0 -> 20
	MaxViolations int
	// AllowEmpty accepts a file with no records
	AllowEmpty bool
}

// NewVerifier returns a Verifier with default limits
func NewVerifier() *Verifier { return &Verifier{} }

// Verify implements domain.Verifier. Any invalid record or an empty file fails with a validation error
func (v *Verifier) Verify(ctx context.Context, path string) (domain.Verification, error) {
	out := domain.Verification{Path: path}
	limit := v.MaxViolations
	if limit <= 0 {
		limit = 20
	}

	rd, err := jsonl.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, perr.Wrapf(err, perr.ErrorCodeNotFound, "verify: %s", path)
		}
		return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "verify: open %s", path)
	}
	defer func() { _ = rd.Close() }()

	note := func(line int, path, reason string) {
		if len(out.Violations) < limit {
			out.Violations = append(out.Violations, domain.LineViolation{Line: line, Path: path, Reason: reason})
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ln, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "verify: read %s", path)
		}
		out.Records++
		if ln.Err != nil {
			out.Invalid++
			note(ln.No, "$", ln.Err.Error())
			continue
		}

		val, err := record.Parse(ln.Bytes)
		if err != nil {
			out.Invalid++
			note(ln.No, "$", "invalid JSON: "+err.Error())
			continue
		}
		if val.Kind() != record.KindObject {
			out.Invalid++
			note(ln.No, "$", "not an object")
			continue
		}
		if vs := record.Check(val); len(vs) > 0 {
			out.Invalid++
			for _, x := range vs {
				note(ln.No, x.Path, x.Reason)
			}
		}
	}

	switch {
	case out.Invalid > 0:
		return out, perr.Newf(perr.ErrorCodeValidation, "verify: %s has %d invalid of %d records", path, out.Invalid, out.Records)
	case out.Records == 0 && !v.AllowEmpty:
		return out, perr.Newf(perr.ErrorCodeValidation, "verify: %s has no records", path)
	}
	return out, nil
}
