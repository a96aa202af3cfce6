// Package bind provides JSON bind and validation helpers shared by handlers
// and config loaders
package bind

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc pairs the validator with its english translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Get returns the shared validator. Messages name fields by their json tag
// and the slug tag is registered
func Get() *ValidatorSvc {
	vOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		_ = v.RegisterValidation("slug", isSlug)

		for tag, text := range map[string]string{
			"min":  "{0} must be at least {1}",
			"max":  "{0} must be at most {1}",
			"slug": "{0} must use only a-z, 0-9, '-' and '_'",
		} {
			short(v, trans, tag, text)
		}
		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

func jsonName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// isSlug accepts 1..64 bytes of [a-z0-9_-]
func isSlug(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return false
		}
	}
	return true
}

// JSONOptions controls ParseJSON
type JSONOptions struct {
	MaxBytes        int64 // <=0 means unlimited
	DisallowUnknown bool
	AllowEmptyBody  bool // an empty body yields the zero T
}

var defaultJSON = JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}

// ParseJSON decodes a single JSON value into T and validates it. Decode
// failures are ErrorCodeJSON, rule failures ErrorCodeValidation with the field set
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero, dst T
	o := defaultJSON
	if len(opts) > 0 {
		o = opts[0]
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.Get().Error().Err(err).Msg("bind: close request body")
		}
	}()

	var body io.Reader = r.Body
	if o.MaxBytes > 0 {
		body = io.LimitReader(body, o.MaxBytes)
	}
	br := bufio.NewReader(body)
	if _, err := br.Peek(1); err != nil {
		if o.AllowEmptyBody {
			return dst, nil
		}
		return zero, perr.JSONErrf("empty body")
	}

	dec := json.NewDecoder(br)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&dst); err != nil {
		if o.AllowEmptyBody && errors.Is(err, io.EOF) {
			return dst, nil
		}
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}

	if err := Get().Validator.Struct(dst); err != nil {
		var inv *validator.InvalidValidationError
		if errors.As(err, &inv) {
			logger.Get().Error().Err(inv).Msg("bind: validator misuse")
			return zero, perr.JSONErrf("validation error")
		}
		field, msg := ValidationFieldAndMessage(err)
		return zero, perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
	}
	return dst, nil
}

// ValidationFieldAndMessage returns the first field and translated message
func ValidationFieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return "", inv.Error()
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	return "", err.Error()
}

func short(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, text, true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
