package handler

import (
	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator so
// handlers can call c.Validate on bound request structs.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator returns a validator using struct `validate` tags.
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (r *RequestValidator) Validate(i interface{}) error {
	return r.v.Struct(i)
}
