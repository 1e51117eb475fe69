package panel

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
)

// Collaborator is the data-access surface the panel needs. Implementations
// report missing records with users.ErrUserNotFound and rejected drafts with
// users.FieldErrors.
type Collaborator interface {
	ListUsers(ctx context.Context) ([]users.User, error)
	CreateUser(ctx context.Context, draft users.Draft) (users.User, error)
	UpdateUser(ctx context.Context, id string, draft users.Draft) (users.User, error)
	DeleteUser(ctx context.Context, id string) error
}

var (
	// ErrSubmitInFlight indicates the editor is still waiting on a previous submission.
	ErrSubmitInFlight = errors.New("panel: submission already in flight")
	// ErrEditorClosed indicates the editor session has ended.
	ErrEditorClosed = errors.New("panel: editor is closed")
	// ErrDeleteInFlight indicates a delete is still waiting on the collaborator.
	ErrDeleteInFlight = errors.New("panel: delete already in flight")
	// ErrNothingToConfirm indicates Confirm was called without a pending target.
	ErrNothingToConfirm = errors.New("panel: no delete pending confirmation")

	errMissingCollaborator = errors.New("panel: collaborator is required")
)
