package utils

import "github.com/go-playground/validator/v10"

// CustomValidator adapts go-playground/validator to echo.Validator so
// handlers can call c.Validate on bound request bodies.
type CustomValidator struct {
    validator *validator.Validate
}

func NewValidator(v *validator.Validate) *CustomValidator {
    if v == nil {
        v = validator.New()
    }
    return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
    return cv.validator.Struct(i)
}
