package ingest

import (
	"context"
	"path/filepath"
	"testing"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/testkit"
)

func TestVerifier_Verify(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		allow   bool
		code    perr.ErrorCode // ErrorCodeUnknown means no error
		records int
		invalid int
	}{
		{"clean", `{"price": 150, "price_category": "Medium"}` + "\n" + `{"title": "x"}` + "\n", false, perr.ErrorCodeUnknown, 2, 0},
		{"null left behind", `{"title": null}` + "\n" + `{"a": 1}` + "\n", false, perr.ErrorCodeValidation, 2, 1},
		{"not json", "{nope\n", false, perr.ErrorCodeValidation, 1, 1},
		{"not an object", "[1]\n", false, perr.ErrorCodeValidation, 1, 1},
		{"wrong derived feature", `{"overall": 4.0, "review_sentiment": "Neutral"}` + "\n", false, perr.ErrorCodeValidation, 1, 1},
		{"empty", "", false, perr.ErrorCodeValidation, 0, 0},
		{"empty allowed", "\n", true, perr.ErrorCodeUnknown, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := testkit.WriteFile(t, "clean.jsonl", []byte(tc.body))
			v := &Verifier{AllowEmpty: tc.allow}

			got, err := v.Verify(context.Background(), path)
			if tc.code == perr.ErrorCodeUnknown {
				if err != nil {
					t.Fatalf("verify: %v", err)
				}
			} else if !perr.IsCode(err, tc.code) {
				t.Fatalf("want code %v got %v", tc.code, err)
			}
			if got.Records != tc.records || got.Invalid != tc.invalid {
				t.Fatalf("verification = %+v", got)
			}
			if tc.invalid > 0 && len(got.Violations) == 0 {
				t.Fatalf("no violations reported")
			}
		})
	}
}

func TestVerifier_CapsViolations(t *testing.T) {
	path := testkit.WriteFile(t, "clean.jsonl", []byte("{\"a\": null, \"b\": null, \"c\": null}\n"))
	got, err := (&Verifier{MaxViolations: 2}).Verify(context.Background(), path)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v", err)
	}
	if len(got.Violations) != 2 || got.Violations[0].Line != 1 || got.Violations[0].Path != "$.a" {
		t.Fatalf("violations = %+v", got.Violations)
	}
}

func TestVerifier_MissingFile(t *testing.T) {
	_, err := NewVerifier().Verify(context.Background(), filepath.Join(t.TempDir(), "gone.jsonl"))
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
}
