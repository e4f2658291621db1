// Package forms checks raw submissions for the login, signup and contact
// forms and reports problems as field-level error lists. Static rules run
// first; uniqueness lookups hit storage only for fields that already passed.
package forms

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/contactdesk/backend/internal/common/constants"
	"github.com/contactdesk/backend/internal/observability/metrics"
	userrepo "github.com/contactdesk/backend/internal/user/repository"
)

type LoginForm struct {
	Username string `form:"username" validate:"required,min=3,max=64,no_html_tags"`
	Password string `form:"password" validate:"required,min=6,max=128"`
	Remember bool   `form:"remember"`
}

type SignupForm struct {
	Username        string `form:"username" validate:"required,min=3,max=64,no_html_tags"`
	Email           string `form:"email" validate:"required,email,max=120"`
	Password        string `form:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type ContactForm struct {
	Name    string `form:"name" validate:"required,min=1,max=80,no_html_tags"`
	Email   string `form:"email" validate:"required,email,max=120"`
	Phone   string `form:"phone" validate:"omitempty,max=20,phone_chars"`
	Message string `form:"message" validate:"required,min=1,max=1000,no_html_tags"`
}

// Errors maps a form field to the messages shown next to it.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Any() bool {
	return len(e) > 0
}

func (e Errors) Details() map[string]any {
	details := make(map[string]any, len(e))
	for field, messages := range e {
		details[field] = messages
	}
	return details
}

var phoneRegex = regexp.MustCompile(`^[0-9+()\-\s]*$`)

type Validator struct {
	validate *validator.Validate
	users    userrepo.Repository
}

func NewValidator(users userrepo.Repository) *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Fields rendered back into markup later must never carry tag characters.
	_ = v.RegisterValidation("no_html_tags", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return !strings.ContainsAny(value, "<>")
	})

	_ = v.RegisterValidation("phone_chars", func(fl validator.FieldLevel) bool {
		return phoneRegex.MatchString(fl.Field().String())
	})

	return &Validator{validate: v, users: users}
}

func (v *Validator) ValidateLogin(form LoginForm) Errors {
	return v.static("login", form)
}

// ValidateSignup runs the static rules, then checks username and email
// uniqueness for fields that passed. The returned error is a storage
// failure, never a user mistake.
func (v *Validator) ValidateSignup(ctx context.Context, form SignupForm) (Errors, error) {
	fieldErrors := v.static("signup", form)

	if _, bad := fieldErrors["username"]; !bad {
		_, err := v.users.FindByUsername(ctx, form.Username)
		switch {
		case err == nil:
			fieldErrors.Add("username", "Username is already taken.")
			metrics.FormValidationFailuresTotal.WithLabelValues("signup", "username").Inc()
		case !errors.Is(err, userrepo.ErrUserNotFound):
			return nil, fmt.Errorf("username uniqueness check: %w", err)
		}
	}

	if _, bad := fieldErrors["email"]; !bad {
		_, err := v.users.FindByEmail(ctx, form.Email)
		switch {
		case err == nil:
			fieldErrors.Add("email", "Email is already registered.")
			metrics.FormValidationFailuresTotal.WithLabelValues("signup", "email").Inc()
		case !errors.Is(err, userrepo.ErrUserNotFound):
			return nil, fmt.Errorf("email uniqueness check: %w", err)
		}
	}

	return fieldErrors, nil
}

func (v *Validator) ValidateContact(form ContactForm) Errors {
	return v.static("contact", form)
}

func (v *Validator) static(formName string, form any) Errors {
	fieldErrors := Errors{}

	err := v.validate.Struct(form)
	if err == nil {
		return fieldErrors
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// validator only returns other error types for unusable input
		// structs, which would be a programming error.
		fieldErrors.Add("form", "Invalid submission.")
		return fieldErrors
	}

	for _, fe := range validationErrors {
		field := fe.Field()
		fieldErrors.Add(field, message(formName, field, fe.Tag()))
		metrics.FormValidationFailuresTotal.WithLabelValues(formName, field).Inc()
	}

	return fieldErrors
}

func message(formName, field, tag string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "no_html_tags":
		return "HTML tags are not allowed."
	case "phone_chars":
		return "Invalid phone number format."
	case "eqfield":
		return "Passwords must match."
	case "min", "max":
		min, max := lengthBounds(formName, field)
		return fmt.Sprintf("Field must be between %d and %d characters long.", min, max)
	default:
		return "Invalid value."
	}
}

func lengthBounds(formName, field string) (int, int) {
	switch field {
	case "username":
		return constants.UsernameMinLength, constants.UsernameMaxLength
	case "email":
		return 1, constants.EmailMaxLength
	case "password":
		if formName == "login" {
			return constants.LoginPasswordMinLength, constants.PasswordMaxLength
		}
		return constants.SignupPasswordMinLength, constants.PasswordMaxLength
	case "name":
		return constants.ContactNameMinLength, constants.ContactNameMaxLength
	case "phone":
		return 0, constants.ContactPhoneMaxLength
	case "message":
		return constants.ContactMessageMinLength, constants.ContactMessageMaxLength
	default:
		return 0, 0
	}
}
