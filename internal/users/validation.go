package users

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mode distinguishes drafts that create a record from drafts that edit one.
type Mode string

const (
	// ModeCreate validates a draft for a record that does not exist yet.
	ModeCreate Mode = "create"
	// ModeEdit validates a draft for an existing record.
	ModeEdit Mode = "edit"
)

// FieldErrorCode enumerates the field-level validation failures.
type FieldErrorCode string

const (
	FieldErrorRequired      FieldErrorCode = "required"
	FieldErrorInvalidFormat FieldErrorCode = "invalid_format"
	FieldErrorInvalidChoice FieldErrorCode = "invalid_choice"
	// FieldErrorTaken is reported by the backing store, never by ValidateDraft.
	FieldErrorTaken         FieldErrorCode = "taken"
)

// Field names used as FieldErrors keys.
const (
	FieldName   = "name"
	FieldEmail  = "email"
	FieldStatus = "status"
)

// FieldErrors maps a draft field to the first validation failure found on it.
type FieldErrors map[string]FieldErrorCode

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+string(e[field]))
	}
	return "users: invalid draft (" + strings.Join(parts, ", ") + ")"
}

type draftInput struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

var draftValidator = newDraftValidator()

func newDraftValidator() *validator.Validate {
	instance := validator.New(validator.WithRequiredStructEnabled())
	instance.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return instance
}

// ValidateDraft trims and checks a draft. On failure the returned error is a FieldErrors.
// An empty status defaults to active when creating.
func ValidateDraft(draft Draft, mode Mode) (Draft, error) {
	input := draftInput{
		Name:   normalize(draft.Name),
		Email:  strings.ToLower(normalize(draft.Email)),
		Status: strings.ToLower(normalize(draft.Status.String())),
	}
	if input.Status == "" && mode != ModeEdit {
		input.Status = string(StatusActive)
	}
	if parsed, err := ParseStatus(input.Status); err == nil {
		input.Status = string(parsed)
	}

	if err := draftValidator.Struct(input); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return Draft{}, err
		}
		fieldErrors := make(FieldErrors, len(validationErrors))
		for _, fieldError := range validationErrors {
			fieldErrors[fieldError.Field()] = codeForTag(fieldError.Tag())
		}
		return Draft{}, fieldErrors
	}

	return Draft{
		Name:   input.Name,
		Email:  input.Email,
		Status: Status(input.Status),
	}, nil
}

func codeForTag(tag string) FieldErrorCode {
	switch tag {
	case "required":
		return FieldErrorRequired
	case "oneof":
		return FieldErrorInvalidChoice
	default:
		return FieldErrorInvalidFormat
	}
}
