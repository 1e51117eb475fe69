package panel

import (
	"context"
	"errors"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"go.uber.org/zap"
)

// Editor is one create or edit session over a draft. At most one Submit runs at a time.
type Editor struct {
	session  *Session
	mode     users.Mode
	targetID string
	inFlight atomic.Bool

	mu          sync.Mutex
	draft       users.Draft
	fieldErrors users.FieldErrors
	open        bool
}

func newEditor(session *Session, mode users.Mode, targetID string, draft users.Draft) *Editor {
	return &Editor{
		session:  session,
		mode:     mode,
		targetID: targetID,
		draft:    draft,
		open:     true,
	}
}

func (e *Editor) Mode() users.Mode {
	return e.mode
}

// TargetID is the id being edited; empty in create mode.
func (e *Editor) TargetID() string {
	return e.targetID
}

func (e *Editor) Draft() users.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

func (e *Editor) SetDraft(draft users.Draft) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = draft
}

func (e *Editor) SetName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Name = name
}

func (e *Editor) SetEmail(email string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Email = email
}

func (e *Editor) SetStatus(status users.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft.Status = status
}

// FieldErrors returns the errors from the last rejected submission.
func (e *Editor) FieldErrors() users.FieldErrors {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.fieldErrors)
}

func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// InFlight reports whether a submission is waiting on the collaborator.
func (e *Editor) InFlight() bool {
	return e.inFlight.Load()
}

// Close abandons the editor. It cannot be closed while a submission is in flight.
func (e *Editor) Close() error {
	if e.inFlight.Load() {
		return ErrSubmitInFlight
	}
	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
	e.session.releaseEditor(e)
	return nil
}

// Submit validates the draft and dispatches exactly one create or update.
// Invalid drafts never reach the collaborator. On success the editor closes and
// the session re-fetches; on failure it stays open for a retry.
func (e *Editor) Submit(ctx context.Context) (users.User, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return users.User{}, ErrSubmitInFlight
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return users.User{}, ErrEditorClosed
	}
	draft := e.draft
	e.mu.Unlock()

	validated, err := users.ValidateDraft(draft, e.mode)
	if err != nil {
		var fieldErrors users.FieldErrors
		if errors.As(err, &fieldErrors) {
			e.setFieldErrors(fieldErrors)
		}
		return users.User{}, err
	}
	e.setFieldErrors(nil)

	saved, err := e.dispatch(ctx, validated)
	if err != nil {
		e.handleFailure(ctx, err)
		return users.User{}, err
	}

	e.mu.Lock()
	e.open = false
	e.mu.Unlock()
	e.session.releaseEditor(e)

	if e.mode == users.ModeEdit {
		e.session.notify(LevelSuccess, "User updated successfully")
	} else {
		e.session.notify(LevelSuccess, "User created successfully")
	}
	e.session.refreshAfterWrite(ctx)
	return saved, nil
}

func (e *Editor) dispatch(ctx context.Context, draft users.Draft) (users.User, error) {
	if e.mode == users.ModeEdit {
		return e.session.collaborator.UpdateUser(ctx, e.targetID, draft)
	}
	return e.session.collaborator.CreateUser(ctx, draft)
}

func (e *Editor) handleFailure(ctx context.Context, err error) {
	e.session.logger.Warn("editor submission failed",
		zap.String("mode", string(e.mode)),
		zap.String("user_id", e.targetID),
		zap.Error(err))

	var fieldErrors users.FieldErrors
	if errors.As(err, &fieldErrors) {
		e.setFieldErrors(fieldErrors)
	}

	switch {
	case errors.Is(err, users.ErrUserNotFound):
		e.session.notify(LevelError, "User no longer exists")
		e.session.refreshAfterWrite(ctx)
	case errors.Is(err, users.ErrEmailTaken):
		e.setFieldErrors(users.FieldErrors{users.FieldEmail: users.FieldErrorTaken})
		e.session.notify(LevelError, "Email already in use")
	case e.mode == users.ModeEdit:
		e.session.notify(LevelError, "Failed to update user")
	default:
		e.session.notify(LevelError, "Failed to create user")
	}
}

func (e *Editor) setFieldErrors(fieldErrors users.FieldErrors) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fieldErrors = maps.Clone(fieldErrors)
}
