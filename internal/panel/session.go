package panel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MarcoPoloResearchLab/roster/internal/pipeline"
	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "users"

// SessionConfig describes the dependencies of a panel session.
type SessionConfig struct {
	Collaborator Collaborator
	Notifier     Notifier
	Logger       *zap.Logger
	Clock        func() time.Time
	// PageSize overrides the default page size when non-zero.
	PageSize int
}

// Session holds the view state of one mounted panel: the last list snapshot
// received from the collaborator, the pipeline state, the open editor and the
// pending delete confirmation. Mutations are never applied to the snapshot
// locally; the session re-fetches after every successful write.
type Session struct {
	collaborator Collaborator
	notifier     Notifier
	logger       *zap.Logger
	clock        func() time.Time

	refreshes singleflight.Group
	fetchSeq  atomic.Int64

	mu         sync.Mutex
	state      pipeline.State
	snapshot   []users.User
	appliedSeq int64
	editor     *Editor
	deletion   *DeleteConfirmation
}

// listing is one ListUsers result tagged with the order its call started in.
type listing struct {
	seq     int64
	records []users.User
}

// NewSession constructs a session with a fresh pipeline state.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Collaborator == nil {
		return nil, errMissingCollaborator
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifications(logger)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	state := pipeline.NewState()
	if cfg.PageSize != 0 {
		if err := state.SetPageSize(cfg.PageSize); err != nil {
			return nil, err
		}
	}

	return &Session{
		collaborator: cfg.Collaborator,
		notifier:     notifier,
		logger:       logger,
		clock:        clock,
		state:        state,
	}, nil
}

// Refresh replaces the snapshot with the collaborator's current list.
// Concurrent refreshes share a single ListUsers call. A list whose call started
// before the one behind the current snapshot is discarded.
func (s *Session) Refresh(ctx context.Context) error {
	result, err, _ := s.refreshes.Do(refreshKey, func() (any, error) {
		seq := s.fetchSeq.Add(1)
		records, err := s.collaborator.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		return listing{seq: seq, records: records}, nil
	})
	if err != nil {
		s.logger.Warn("user list refresh failed", zap.Error(err))
		s.notify(LevelError, "Failed to load users")
		return fmt.Errorf("refresh users: %w", err)
	}
	fetched, _ := result.(listing)

	s.mu.Lock()
	stale := fetched.seq < s.appliedSeq
	if !stale {
		s.appliedSeq = fetched.seq
		s.snapshot = append([]users.User(nil), fetched.records...)
	}
	s.state.Clamp(len(pipeline.Filter(s.snapshot, s.state.Query)))
	s.mu.Unlock()

	if stale {
		s.logger.Debug("discarded stale user list", zap.Int64("seq", fetched.seq))
		return nil
	}
	s.logger.Debug("user list refreshed", zap.Int("count", len(fetched.records)))
	return nil
}

// View derives the visible page and remembers the clamped page index.
func (s *Session) View() pipeline.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := pipeline.Derive(s.snapshot, s.state)
	s.state.PageIndex = page.PageIndex
	return page
}

// State returns a copy of the current pipeline state.
func (s *Session) State() pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the last list received from the collaborator.
func (s *Session) Snapshot() []users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]users.User(nil), s.snapshot...)
}

// Lookup finds a record in the current snapshot.
func (s *Session) Lookup(id string) (users.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

func (s *Session) lookupLocked(id string) (users.User, bool) {
	for _, record := range s.snapshot {
		if record.ID == id {
			return record, true
		}
	}
	return users.User{}, false
}

func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetQuery(query)
}

func (s *Session) ToggleSort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ToggleSort()
}

func (s *Session) SetSortOrder(order pipeline.SortOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SetSortOrder(order)
}

// SetPageSize switches the page size and returns to the first page.
func (s *Session) SetPageSize(size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetPageSize(size)
}

// GoToPage jumps to pageIndex, clamped to the pages that currently exist.
func (s *Session) GoToPage(pageIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PageIndex = pageIndex
	s.state.Clamp(s.filteredCountLocked())
}

func (s *Session) NextPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Next(s.filteredCountLocked())
}

func (s *Session) PrevPage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Prev(s.filteredCountLocked())
}

func (s *Session) filteredCountLocked() int {
	return len(pipeline.Filter(s.snapshot, s.state.Query))
}

// OpenCreate starts an editor for a new record.
func (s *Session) OpenCreate() (*Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor != nil && s.editor.InFlight() {
		return nil, ErrSubmitInFlight
	}
	s.editor = newEditor(s, users.ModeCreate, "", users.Draft{Status: users.StatusActive})
	return s.editor, nil
}

// OpenEdit starts an editor for record, preferring the snapshot's copy of the
// same id over the one passed in.
func (s *Session) OpenEdit(record users.User) (*Editor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor != nil && s.editor.InFlight() {
		return nil, ErrSubmitInFlight
	}
	if fresh, ok := s.lookupLocked(record.ID); ok {
		record = fresh
	}
	s.editor = newEditor(s, users.ModeEdit, record.ID, users.DraftFrom(record))
	return s.editor, nil
}

// Editor returns the open editor, if any.
func (s *Session) Editor() *Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// RequestDelete arms a confirmation for record. Nothing is deleted until Confirm.
func (s *Session) RequestDelete(record users.User) (*DeleteConfirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletion != nil && s.deletion.InFlight() {
		return nil, ErrDeleteInFlight
	}
	s.deletion = newDeleteConfirmation(s, record)
	return s.deletion, nil
}

// PendingDelete returns the armed delete confirmation, if any.
func (s *Session) PendingDelete() *DeleteConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletion
}

func (s *Session) releaseEditor(editor *Editor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == editor {
		s.editor = nil
	}
}

func (s *Session) releaseDeletion(deletion *DeleteConfirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deletion == deletion {
		s.deletion = nil
	}
}

// refreshAfterWrite never joins a ListUsers call that may have started before
// the write landed.
func (s *Session) refreshAfterWrite(ctx context.Context) {
	s.refreshes.Forget(refreshKey)
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after write failed", zap.Error(err))
	}
}

func (s *Session) notify(level Level, message string) {
	s.notifier.Notify(Notification{Level: level, Message: message, At: s.clock()})
}
