package bind

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "reviewprep/internal/platform/errors"
)

type payload struct {
	Trigger string `json:"trigger" validate:"required,slug"`
	Limit   int    `json:"limit" validate:"min=1"`
}

func post(body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	}
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestParseJSON_Success(t *testing.T) {
	got, err := ParseJSON[payload](post(`{"trigger":"backfill","limit":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Trigger != "backfill" || got.Limit != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		opts  []JSONOptions
		code  perr.ErrorCode
		field string
	}{
		{"empty body", "", nil, perr.ErrorCodeJSON, ""},
		{"invalid json", `{`, nil, perr.ErrorCodeJSON, ""},
		{"trailing data", `{"trigger":"a","limit":3} {}`, nil, perr.ErrorCodeJSON, ""},
		{"unknown field", `{"trigger":"a","limit":1,"boom":1}`, nil, perr.ErrorCodeJSON, ""},
		{"over max bytes", `{"trigger":"abc","limit":3}`, []JSONOptions{{MaxBytes: 5, DisallowUnknown: true}}, perr.ErrorCodeJSON, ""},
		{"min", `{"trigger":"a","limit":0}`, nil, perr.ErrorCodeValidation, "limit"},
		{"slug", `{"trigger":"Nightly Run","limit":1}`, nil, perr.ErrorCodeValidation, "trigger"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON[payload](post(tc.body), tc.opts...)
			if perr.CodeOf(err) != tc.code {
				t.Fatalf("code = %v want %v (%v)", perr.CodeOf(err), tc.code, err)
			}
			if tc.field != "" {
				e, ok := perr.As(err)
				if !ok || e.Field() != tc.field {
					t.Fatalf("field = %v want %s", err, tc.field)
				}
			}
		})
	}
}

func TestParseJSON_AllowEmptyBody(t *testing.T) {
	type opt struct {
		Trigger string `json:"trigger" validate:"omitempty,slug"`
	}
	for _, body := range []string{"", `{}`} {
		got, err := ParseJSON[opt](post(body), JSONOptions{AllowEmptyBody: true, MaxBytes: 8})
		if err != nil {
			t.Fatalf("%q: unexpected: %v", body, err)
		}
		if got != (opt{}) {
			t.Fatalf("%q: expected zero value, got %+v", body, got)
		}
	}
}

func TestParseJSON_DisallowUnknownFalse(t *testing.T) {
	got, err := ParseJSON[payload](post(`{"trigger":"a","limit":3,"extra":"ok"}`), JSONOptions{})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got.Limit != 3 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestParseJSON_NonStructIsInternalValidationError(t *testing.T) {
	_, err := ParseJSON[int](post(`5`))
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON-coded error, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestValidationFieldAndMessage(t *testing.T) {
	type s struct {
		Count int    `json:"count,omitempty" validate:"max=5"`
		Name  string `json:"-" validate:"omitempty,slug"`
		Plain int    `validate:"gte=0"`
	}
	tests := []struct {
		name      string
		in        s
		wantField string
		wantMsg   string
	}{
		{"json tag trimmed", s{Count: 6}, "count", "count must be at most 5"},
		{"dash uses field name", s{Name: "a b"}, "Name", "Name must use only a-z, 0-9, '-' and '_'"},
		{"no tag uses field name", s{Plain: -1}, "Plain", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			field, msg := ValidationFieldAndMessage(Get().Validator.Struct(tc.in))
			if field != tc.wantField {
				t.Fatalf("field = %q want %q", field, tc.wantField)
			}
			if tc.wantMsg != "" && msg != tc.wantMsg {
				t.Fatalf("msg = %q want %q", msg, tc.wantMsg)
			}
		})
	}

	if f, m := ValidationFieldAndMessage(errors.New("boom")); f != "" || m != "boom" {
		t.Fatalf("generic passthrough got field=%q msg=%q", f, m)
	}
	if f, m := ValidationFieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil got field=%q msg=%q", f, m)
	}
}

func TestSlug(t *testing.T) {
	type s struct {
		V string `json:"v" validate:"slug"`
	}
	tests := []struct {
		in string
		ok bool
	}{
		{"reviews", true},
		{"all_beauty-2023", true},
		{"", false},
		{"Reviews", false},
		{"a/b", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tc := range tests {
		err := Get().Validator.Struct(s{V: tc.in})
		if (err == nil) != tc.ok {
			t.Fatalf("slug(%q) err=%v want ok=%v", tc.in, err, tc.ok)
		}
	}
}
