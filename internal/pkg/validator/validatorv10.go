package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/otpgate/internal/pkg/strcase"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned when validation fails.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and the
// custom "notblank" rule.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what the client sent.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerCustom(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{validate: validate, translator: enTrans}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	errV10 := make(V10ValidationError, len(validateErrs))
	for _, fe := range validateErrs {
		errV10[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}

	return errV10
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func registerCustom(validate *validator.Validate, enTrans ut.Translator) error {
	rules := []struct {
		tag  string
		fn   validator.Func
		text string
	}{
		{tag: "notblank", fn: isNotBlank, text: "{0} must not be blank"},
	}

	for _, r := range rules {
		if err := validate.RegisterValidation(r.tag, r.fn); err != nil {
			return err
		}

		text := r.text
		err := validate.RegisterTranslation(r.tag, enTrans,
			func(t ut.Translator) error {
				return t.Add(r.tag, text, false)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, err := t.T(fe.Tag(), fe.Field())
				if err != nil {
					slog.Warn("failed to translate validation error", "tag", fe.Tag(), "error", err)
					return fe.Error()
				}
				return msg
			},
		)
		if err != nil {
			return err
		}
	}

	return nil
}
