package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	userKindTag  = "userkind"
	userKindText = "must be one of: school, teacher, student"
)

// RegisterValidators registers the user validators on v.
func RegisterValidators(v *core.Validator) {
	v.RegisterValidation(userKindTag, userKindText, userKindValidation)
}

func userKindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).IsValid()
}
