// Package validation checks request bodies against their `validate` struct tags.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	dErrors "smartgn/pkg/domain-errors"
	s "smartgn/pkg/string"

	"github.com/go-playground/validator/v10"
)

// nicPattern accepts the old (9 digits + V/X) and new (12 digits) NIC formats.
var nicPattern = regexp.MustCompile(`^([0-9]{9}[vVxX]|[0-9]{12})$`)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("nic", func(fl validator.FieldLevel) bool {
		return IsNIC(fl.Field().String())
	})
	return v
}

// IsNIC reports whether nic is a well-formed national identity card number.
func IsNIC(nic string) bool {
	return nicPattern.MatchString(strings.TrimSpace(nic))
}

// Validate runs the struct tags of req and returns a CodeValidation error
// describing the first failing field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message.
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	fieldName := fe.Field()
	if fieldName == "" {
		fieldName = fe.StructField()
	}
	field := s.ToSnakeCase(fieldName)

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid uuid", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "nic":
		return fmt.Sprintf("%s must be a valid NIC number", field)
	default:
		if field == "" {
			return "invalid request body"
		}
		return fmt.Sprintf("%s is invalid", field)
	}
}
