package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"sulestate/internal/domain/entity"
)

// Validator adapts go-playground/validator to echo.Validator. Field names in
// errors are the JSON names so clients can highlight the offending input.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("visitoremail", func(fl validator.FieldLevel) bool {
		return entity.IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
