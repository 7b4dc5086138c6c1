// Package validation declares the request rules for accounts and posts as
// struct tags and checks them with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Limits mirrored by the tags below; the seed factory sizes usernames with them.
const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxEmailLength    = 254
)

// Registration is the sign-up payload.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=30,handle,unreserved"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,min=8,bcryptlen,notblank"`
}

// A handle starts and ends with a letter or digit; _ and - may appear inside.
var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9_-]*[a-zA-Z0-9])?$`)

// Usernames that would shadow fixed routes under /users.
var reservedUsernames = map[string]struct{}{
	"me":      {},
	"admin":   {},
	"login":   {},
	"logout":  {},
	"posts":   {},
	"feed":    {},
	"users":   {},
	"ws":      {},
	"health":  {},
	"metrics": {},
	"swagger": {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	for tag, fn := range map[string]validator.Func{
		"notblank": validators.NotBlank,
		"handle": func(fl validator.FieldLevel) bool {
			return handlePattern.MatchString(fl.Field().String())
		},
		"unreserved": func(fl validator.FieldLevel) bool {
			_, reserved := reservedUsernames[strings.ToLower(fl.Field().String())]
			return !reserved
		},
		"bcryptlen": func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= MaxPasswordLength
		},
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	return v
}

// ValidateRegistration reports the first rule r breaks.
func ValidateRegistration(r Registration) error {
	return check(r)
}

// NormalizeEmail trims and lowercases an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	return errors.New(describe(errs[0]))
}

// describe renders a failed rule as a client-facing message.
func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " must not be empty"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "email":
		return "invalid email format"
	case "handle":
		return "username can only contain letters, numbers, underscores, and hyphens, and cannot start or end with underscore or hyphen"
	case "unreserved":
		return "username is reserved"
	case "bcryptlen":
		return fmt.Sprintf("password must not exceed %d bytes", MaxPasswordLength)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
