// Package validation validates request payloads with go-playground/validator
// and reports failures as field-keyed apperr validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yamdb/apiserver/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON field names rather than Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Struct validates s and returns nil or an *apperr.Error listing the
// message for every failing field.
func Struct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation("invalid", err.Error())
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, apperr.Field(fe.Tag(), fe.Field(), translate(fe)))
	}
	return apperr.Join(errs...)
}

var messages = map[string]string{
	"required": "this field is required",
	"email":    "enter a valid email address",
	"username": "enter a valid username: letters, digits and @/./+/-/_ only",
	"slug":     "enter a valid slug: letters, numbers, underscores or hyphens",
}

var messagesWithParam = map[string]string{
	"max":   "ensure this field has no more than %s characters",
	"min":   "ensure this field has at least %s characters",
	"oneof": "must be one of: %s",
	"gte":   "ensure this value is greater than or equal to %s",
	"lte":   "ensure this value is less than or equal to %s",
}

func translate(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	if tmpl, ok := messagesWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, fe.Param())
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}
