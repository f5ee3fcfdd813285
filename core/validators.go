package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	baseNameTag   = "basename"
	baseNameText  = "only letters, digits, spaces, dots, dashes and underscores are allowed"
	baseNameRegex = regexp.MustCompile(`^[\p{L}\p{N}_ .-]+$`)

	exportFormatTag  = "exportformat"
	exportFormatText = "{0} must be one of: excel, pdf"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with all our custom validations and translations registered.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	InitValidators(validate, translator)
	return validate
}

// InitValidators instantiates the validator for use.
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
	_ = validate.RegisterValidation(baseNameTag, baseNameValidation)
	RegisterCustomTranslation(validate, translator, baseNameTag, baseNameText)

	_ = validate.RegisterValidation(exportFormatTag, exportFormatValidation)
	RegisterCustomTranslation(validate, translator, exportFormatTag, exportFormatText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
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

// Custom Global Validators

// baseNameValidation rejects path separators and other characters unfit for a file name.
func baseNameValidation(fl validator.FieldLevel) bool {
	return baseNameRegex.MatchString(fl.Field().String())
}

// exportFormatValidation only allows the formats a report can be exported to.
func exportFormatValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "excel", "pdf":
		return true
	}
	return false
}
