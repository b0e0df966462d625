package client

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("client: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// readiness is the shape a request must have before it can be executed.
type readiness struct {
	Verb   string `json:"verb" validate:"required"`
	URL    string `json:"url" validate:"required,url"`
	Scheme string `json:"scheme" validate:"required,oneof=http https"`
	Host   string `json:"host" validate:"required"`
}

type namedKey struct {
	Key string `json:"key" validate:"required"`
}

type redirectCount struct {
	Max int `json:"maxRedirects" validate:"min=1"`
}

type statusCode struct {
	Code int `json:"statusCode" validate:"min=100,max=599"`
}

// checkStruct validates val against its declared tags and converts any
// failure into a *ValidationError carrying FieldErrors.
func checkStruct(val any) error {
	if err := validate.Struct(val); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return &ValidationError{Err: err}
		}

		var fields FieldErrors
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}

		return &ValidationError{Err: fields}
	}

	return nil
}

func checkReady(r Request) error {
	check := readiness{Verb: r.verb}
	if r.url != nil {
		check.URL = r.url.String()
		check.Scheme = strings.ToLower(r.url.Scheme)
		check.Host = r.url.Host
	}

	return checkStruct(check)
}

func checkKey(key string) error {
	return checkStruct(namedKey{Key: key})
}

func checkRedirects(n int) error {
	return checkStruct(redirectCount{Max: n})
}

func checkStatusCode(code int) error {
	return checkStruct(statusCode{Code: code})
}

// FieldError represents a single validation error for a specific field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a JSON summary
// of all field errors.
func (fe FieldErrors) Error() string {
	d, err := json.Marshal(fe)
	if err != nil {
		return err.Error()
	}
	return string(d)
}

// Fields returns the field errors as a map of field name to message.
func (fe FieldErrors) Fields() map[string]string {
	m := make(map[string]string, len(fe))
	for _, fld := range fe {
		m[fld.Field] = fld.Err
	}
	return m
}

func customErrForTag(tag string, verror validator.FieldError) string {
	switch tag {
	case "required":
		return "This field is required"
	default:
		return verror.Translate(translator)
	}
}
