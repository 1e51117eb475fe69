package panel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"go.uber.org/zap"
)

// DeleteConfirmation gates a delete behind an explicit Confirm.
type DeleteConfirmation struct {
	session  *Session
	inFlight atomic.Bool

	mu     sync.Mutex
	target *users.User
}

func newDeleteConfirmation(session *Session, record users.User) *DeleteConfirmation {
	target := record
	return &DeleteConfirmation{session: session, target: &target}
}

// Target returns the record awaiting confirmation.
func (d *DeleteConfirmation) Target() (users.User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.target == nil {
		return users.User{}, false
	}
	return *d.target, true
}

// Armed reports whether Confirm would issue a delete.
func (d *DeleteConfirmation) Armed() bool {
	_, ok := d.Target()
	return ok
}

func (d *DeleteConfirmation) InFlight() bool {
	return d.inFlight.Load()
}

// Cancel disarms the confirmation.
func (d *DeleteConfirmation) Cancel() error {
	if d.inFlight.Load() {
		return ErrDeleteInFlight
	}
	d.disarm()
	return nil
}

// Confirm deletes the armed target. A failed request stays armed for a retry,
// except when the record has already disappeared.
func (d *DeleteConfirmation) Confirm(ctx context.Context) error {
	if !d.inFlight.CompareAndSwap(false, true) {
		return ErrDeleteInFlight
	}
	defer d.inFlight.Store(false)

	target, ok := d.Target()
	if !ok {
		return ErrNothingToConfirm
	}

	if err := d.session.collaborator.DeleteUser(ctx, target.ID); err != nil {
		d.session.logger.Warn("delete failed", zap.String("user_id", target.ID), zap.Error(err))
		if errors.Is(err, users.ErrUserNotFound) {
			d.disarm()
			d.session.notify(LevelError, "User no longer exists")
			d.session.refreshAfterWrite(ctx)
			return err
		}
		d.session.notify(LevelError, "Failed to delete user")
		return err
	}

	d.disarm()
	d.session.notify(LevelSuccess, "User deleted successfully")
	d.session.refreshAfterWrite(ctx)
	return nil
}

func (d *DeleteConfirmation) disarm() {
	d.mu.Lock()
	d.target = nil
	d.mu.Unlock()
	d.session.releaseDeletion(d)
}
