package utils

import (
	"github.com/go-playground/validator/v10"
	"github.com/yusing/fswatch-forward/internal/gperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var ErrValidationError = gperr.New("validation error")

func Validator() *validator.Validate {
	return validate
}
