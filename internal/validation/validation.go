package validation

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/eaglebank/accounts/internal/apperr"
)

// mobilePattern is applied uniformly at every entry point that accepts a
// mobile number.
var mobilePattern = regexp.MustCompile(`(^$|^[0-9]{10}$)`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return ValidMobileNumber(fl.Field().String())
	})
	return v
}

// ValidMobileNumber reports whether s is empty or exactly ten digits.
func ValidMobileNumber(s string) bool {
	return mobilePattern.MatchString(s)
}

// Struct validates obj against its `validate` tags and returns one FieldError
// per violation, or nil when obj is valid.
func Struct(obj any) []apperr.FieldError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Field: "", Message: err.Error(), Type: "invalid"}}
	}
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

// Check is Struct wrapped into a single validation error.
func Check(obj any) error {
	if details := Struct(obj); details != nil {
		return apperr.Validation(details)
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Email address should be valid value"
	case "mobile":
		return "Mobile number must be 10 digit"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	case "lte":
		return "Value must be less than or equal to " + fe.Param()
	default:
		return "Invalid value"
	}
}
