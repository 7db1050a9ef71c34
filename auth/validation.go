package auth

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jrsteele09/foodbook-server/users"
)

// Validator wraps the go-playground validator and reports failures using
// JSON field names.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a Validator with the FoodBook rules registered. It
// panics if a rule cannot be registered.
func NewValidator() *Validator {
	validate := validator.New()

	err := validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return users.ValidatePasswordStrength(fl.Field().String()) == nil
	})
	if err != nil {
		panic(fmt.Sprintf("register password validation: %v", err))
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Validate validates a request struct
func (v *Validator) Validate(i interface{}) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	return NewValidationError(verrs)
}

// ValidationError maps JSON field names to user facing messages
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, e.Errors[field])
	}
	return strings.Join(messages, ", ")
}

func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := make(map[string]string, len(errs))
	for _, err := range errs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s characters long", field, err.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters long", field, err.Param())
		case "alphanum":
			out[field] = fmt.Sprintf("%s must contain only letters and numbers", field)
		case "password":
			out[field] = "password must be at least 8 characters with an uppercase letter, a lowercase letter and a number"
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return &ValidationError{Errors: out}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password string `json:"password" validate:"required,password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// UserStatusRequest blocks (false) or reactivates (true) an account.
type UserStatusRequest struct {
	IsActive *bool  `json:"isActive" validate:"required"`
	Reason   string `json:"reason,omitempty" validate:"omitempty,min=5,max=200"`
}

// AdminActionRequest carries the optional audit reason of delete and promote.
type AdminActionRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,min=5,max=200"`
}
