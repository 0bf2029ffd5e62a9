// Package validation wraps go-playground/validator with a shared instance and
// error messages suitable for returning to API callers.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	tagNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// RequestValidationError collects every failed rule of one request.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// IsValidation lets the error mapper recognise this type without importing it.
func (e *RequestValidationError) IsValidation() bool { return true }

// Get returns the singleton validator instance.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("tagname", func(fl validator.FieldLevel) bool {
			return tagNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Struct validates s. It returns nil or a *RequestValidationError.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &RequestValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		})
	}
	return out
}

// Errorf builds a single-field validation error for checks the tags cannot express.
func Errorf(field, format string, args ...any) error {
	return &RequestValidationError{Fields: []FieldError{{
		Field:   field,
		Tag:     "custom",
		Message: fmt.Sprintf(format, args...),
	}}}
}

var simpleMessages = map[string]string{
	"required": "%s is required",
	"tagname":  "%s must contain lower-case letters, digits, '-' or '_'",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translate(fe validator.FieldError) string {
	if tpl, ok := simpleMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, fe.Field())
	}
	if tpl, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tpl, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
}
