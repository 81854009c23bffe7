// Package validator wraps go-playground/validator with JSON field naming,
// the Brazilian address tags used across the API ("cep", "uf") and
// human-readable messages.
package validator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes caps request bodies read by DecodeAndValidate.
const maxBodyBytes = 1 << 20

// states lists the federative units accepted by the "uf" tag.
var states = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {},
	"ES": {}, "GO": {}, "MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {},
	"PB": {}, "PR": {}, "PE": {}, "PI": {}, "RJ": {}, "RN": {}, "RS": {},
	"RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

var validate = build()

func build() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("cep", func(fl validator.FieldLevel) bool {
		return isCEP(fl.Field().String())
	})
	_ = v.RegisterValidation("uf", func(fl validator.FieldLevel) bool {
		_, ok := states[fl.Field().String()]
		return ok
	})
	return v
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// isCEP reports whether s is a normalized postal code: exactly 8 ASCII digits.
func isCEP(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Validate checks s against its validate tags. All failing fields are
// collected into a *ValidationError.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		return &ValidationError{Errors: fieldErrs}
	}
	return err
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Errors validator.ValidationErrors
}

// Error renders every failure, ordered by field name.
func (e *ValidationError) Error() string {
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, name := range e.FieldNames() {
		parts = append(parts, fmt.Sprintf("field '%s' %s", name, fields[name]))
	}
	return strings.Join(parts, "; ")
}

// Fields maps JSON field names to messages. When a field fails several
// rules only the first is kept.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return fields
}

// FieldNames returns the failing field names, sorted.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Fields() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var fixedMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"numeric":  "must contain only digits",
	"cep":      "must be a postal code of 8 digits",
	"uf":       "must be a Brazilian state code",
}

var paramMessages = map[string]string{
	"len":      "must be exactly %s characters",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gt":       "must be greater than %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"oneof":    "must be one of: %s",
	"datetime": "must be a timestamp in format %s",
}

func message(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}
	if format, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(format, fe.Param())
	}
	return fmt.Sprintf("failed on '%s' validation", fe.Tag())
}

// DecodeAndValidate decodes at most 1 MB of JSON from r into dst, then
// validates it. A body that is not JSON yields a plain error; failing
// fields yield *ValidationError.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return Validate(dst)
}
