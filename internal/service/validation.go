package service

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/puertonuevo/portal-api/internal/models"
)

// NewValidator returns a validator aware of the portal specific tags. Field
// names in errors follow the json tags.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("ambiente", validAmbiente); err != nil {
		panic(fmt.Sprintf("register ambiente validation: %v", err))
	}
	return validate
}

func validAmbiente(fl validator.FieldLevel) bool {
	return models.IsValidAmbiente(strings.ToLower(strings.TrimSpace(fl.Field().String())))
}
