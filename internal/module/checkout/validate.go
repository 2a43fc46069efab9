package checkout

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/praxis/server/internal/shared/errors"
)

// SentinelCPF is the placeholder tax id sent when a profile has none.
const SentinelCPF = "00000000000"

// Validator checks billing requests.
type Validator struct {
	validate     *validator.Validate
	requireTaxID bool
}

// NewValidator creates a Validator. With requireTaxID the placeholder CPF is rejected.
func NewValidator(requireTaxID bool) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return ValidCPF(fl.Field().String())
	})
	return &Validator{validate: v, requireTaxID: requireTaxID}
}

// Validate returns an invalid_request error naming the first bad field.
func (v *Validator) Validate(req *BillingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return invalid(describe(verrs[0]))
		}
		return invalid(err.Error())
	}
	if v.requireTaxID && req.UserData.CPF == SentinelCPF {
		return invalid("user_data.cpf is required")
	}
	return nil
}

// invalid builds a 400 error that matches ErrInvalidRequest.
func invalid(message string) error {
	return &apperrors.AppError{
		Code:       "invalid_request",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

func describe(fe validator.FieldError) string {
	// Namespace is "BillingRequest.user_data.cpf"; drop the struct name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "cpf":
		return field + " must be a valid CPF (11 digits)"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "lte", "max":
		return field + " is too large"
	case "min":
		return field + " is too short"
	case "numeric":
		return field + " must contain only digits"
	default:
		return field + " is invalid"
	}
}

// ValidCPF reports whether s is 11 digits with valid check digits. A single
// repeated digit is rejected unless it is the placeholder.
func ValidCPF(s string) bool {
	if len(s) != 11 {
		return false
	}
	if s != SentinelCPF && repeatedDigits(s) {
		return false
	}
	d := make([]int, 11)
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		d[i] = int(r - '0')
	}
	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, n := range digits {
		sum += n * weight
		weight--
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		return 0
	}
	return rem
}

func repeatedDigits(s string) bool {
	return s != "" && strings.Count(s, s[:1]) == len(s)
}
