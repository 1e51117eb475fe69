package users

import (
	"errors"
	"testing"
)

func TestValidateDraftFieldFailures(t *testing.T) {
	testCases := []struct {
		name       string
		draft      Draft
		mode       Mode
		wantErrors FieldErrors
	}{
		{
			name:       "empty-name",
			draft:      Draft{Name: "", Email: "ana@example.com"},
			mode:       ModeCreate,
			wantErrors: FieldErrors{FieldName: FieldErrorRequired},
		},
		{
			name:       "whitespace-name",
			draft:      Draft{Name: "   ", Email: "ana@example.com"},
			mode:       ModeCreate,
			wantErrors: FieldErrors{FieldName: FieldErrorRequired},
		},
		{
			name:       "empty-email",
			draft:      Draft{Name: "Ana", Email: ""},
			mode:       ModeCreate,
			wantErrors: FieldErrors{FieldEmail: FieldErrorRequired},
		},
		{
			name:       "malformed-email",
			draft:      Draft{Name: "Ana", Email: "not-an-email"},
			mode:       ModeCreate,
			wantErrors: FieldErrors{FieldEmail: FieldErrorInvalidFormat},
		},
		{
			name:       "unknown-status",
			draft:      Draft{Name: "Ana", Email: "ana@example.com", Status: "archived"},
			mode:       ModeCreate,
			wantErrors: FieldErrors{FieldStatus: FieldErrorInvalidChoice},
		},
		{
			name:       "edit-requires-status",
			draft:      Draft{Name: "Ana", Email: "ana@example.com"},
			mode:       ModeEdit,
			wantErrors: FieldErrors{FieldStatus: FieldErrorRequired},
		},
		{
			name:  "everything-missing",
			draft: Draft{},
			mode:  ModeCreate,
			wantErrors: FieldErrors{
				FieldName:  FieldErrorRequired,
				FieldEmail: FieldErrorRequired,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := ValidateDraft(testCase.draft, testCase.mode)
			var fieldErrors FieldErrors
			if !errors.As(err, &fieldErrors) {
				t.Fatalf("expected FieldErrors, got %v", err)
			}
			if len(fieldErrors) != len(testCase.wantErrors) {
				t.Fatalf("unexpected field errors: got %v want %v", fieldErrors, testCase.wantErrors)
			}
			for field, code := range testCase.wantErrors {
				if fieldErrors[field] != code {
					t.Fatalf("field %s: got %q want %q", field, fieldErrors[field], code)
				}
			}
		})
	}
}

func TestValidateDraftNormalizesValues(t *testing.T) {
	validated, err := ValidateDraft(Draft{Name: "  Ana Souza ", Email: " Ana@Example.com "}, ModeCreate)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if validated.Name != "Ana Souza" {
		t.Fatalf("expected trimmed name, got %q", validated.Name)
	}
	if validated.Email != "ana@example.com" {
		t.Fatalf("expected lowercased email, got %q", validated.Email)
	}
	if validated.Status != StatusActive {
		t.Fatalf("expected default status active, got %q", validated.Status)
	}
}

func TestValidateDraftAcceptsLegacyStatus(t *testing.T) {
	validated, err := ValidateDraft(Draft{Name: "Ana", Email: "ana@example.com", Status: "Inativo"}, ModeEdit)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if validated.Status != StatusInactive {
		t.Fatalf("expected inactive, got %q", validated.Status)
	}
}

func TestParseStatus(t *testing.T) {
	testCases := map[string]Status{
		"active":   StatusActive,
		" ACTIVE ": StatusActive,
		"ativo":    StatusActive,
		"inactive": StatusInactive,
		"inativo":  StatusInactive,
	}
	for raw, want := range testCases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: unexpected error %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q want %q", raw, got, want)
		}
	}

	if _, err := ParseStatus("pending"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestFieldErrorsMessageIsSorted(t *testing.T) {
	fieldErrors := FieldErrors{FieldStatus: FieldErrorInvalidChoice, FieldEmail: FieldErrorRequired}
	expected := "users: invalid draft (email: required, status: invalid_choice)"
	if fieldErrors.Error() != expected {
		t.Fatalf("unexpected message %q", fieldErrors.Error())
	}
}
