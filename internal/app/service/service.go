package service

import (
	"errors"
	"fmt"
	"strings"

	"codearena/internal/common"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func translateValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", e.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}

// validateInput validates a request struct and wraps field errors into
// a single ErrValidation with readable messages.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, translateValidationError(fieldErr))
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(messages, ", "))
}
