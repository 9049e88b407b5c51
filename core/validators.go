package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	uuidTag  = "uuid"
	uuidText = "must be a valid ID"
)

// Validator validates structs and values, translating failures into *ValidationError.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator instantiates a Validator with the english translations and the global custom validators.
func NewValidator() *Validator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	v := &Validator{
		validate:   validator.New(),
		translator: translator,
	}
	InitValidators(v.validate, v.translator)
	return v
}

// InitValidators registers the default translations and the global custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, uuidTag, uuidText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterValidation registers a custom field validator along with its error text.
func (v *Validator) RegisterValidation(tag, text string, fn validator.Func) {
	_ = v.validate.RegisterValidation(tag, fn)
	RegisterCustomTranslation(v.validate, v.translator, tag, text)
}

// RegisterStructValidation registers a struct level validator; reported tags must be registered with RegisterTranslation.
func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	v.validate.RegisterStructValidation(fn, types...)
}

// RegisterTranslation registers the error text of a tag reported by a struct level validator.
func (v *Validator) RegisterTranslation(tag, text string) {
	RegisterCustomTranslation(v.validate, v.translator, tag, text)
}

// Struct validates s, returning a *ValidationError listing the invalid fields.
func (v *Validator) Struct(s interface{}) error {
	return v.translate(v.validate.Struct(s))
}

// Var validates a single value against tag, reporting failures on field.
func (v *Validator) Var(field string, val interface{}, tag string) error {
	err := v.translate(v.validate.Var(val, tag))
	if vErr, ok := err.(*ValidationError); ok {
		for i := range vErr.Fields {
			vErr.Fields[i].Field = field
		}
		vErr.Err = errors.Errorf("%s: %s", field, vErr.Fields[0].Error)
	}
	return err
}

func (v *Validator) translate(err error) error {
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: strings.TrimSpace(fe.Translate(v.translator))})
	}
	return NewValidationError(errors.Errorf("%s: %s", flds[0].Field, flds[0].Error), flds...)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}
