package panel

import (
	"context"
	"fmt"
	"sync"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
)

type fakeCollaborator struct {
	mu      sync.Mutex
	records []users.User
	nextID  int

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int

	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// gate, when set, blocks writes until it is closed.
	gate    chan struct{}
	entered chan struct{}

	// listGate, when set, holds the next ListUsers call open after it has
	// copied the records.
	listGate    chan struct{}
	listEntered chan struct{}
}

func newFakeCollaborator(records ...users.User) *fakeCollaborator {
	return &fakeCollaborator{records: append([]users.User(nil), records...), nextID: len(records)}
}

func (f *fakeCollaborator) ListUsers(context.Context) ([]users.User, error) {
	f.mu.Lock()
	f.listCalls++
	if f.listErr != nil {
		f.mu.Unlock()
		return nil, f.listErr
	}
	records := append([]users.User(nil), f.records...)
	gate, entered := f.listGate, f.listEntered
	f.listGate = nil
	f.mu.Unlock()

	if gate != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-gate
	}
	return records, nil
}

func (f *fakeCollaborator) CreateUser(_ context.Context, draft users.Draft) (users.User, error) {
	f.waitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return users.User{}, f.createErr
	}
	f.nextID++
	record := users.User{ID: fmt.Sprintf("id-%02d", f.nextID), Name: draft.Name, Email: draft.Email, Status: draft.Status}
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakeCollaborator) UpdateUser(_ context.Context, id string, draft users.Draft) (users.User, error) {
	f.waitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return users.User{}, f.updateErr
	}
	for index, record := range f.records {
		if record.ID == id {
			record.Name, record.Email, record.Status = draft.Name, draft.Email, draft.Status
			f.records[index] = record
			return record, nil
		}
	}
	return users.User{}, users.ErrUserNotFound
}

func (f *fakeCollaborator) DeleteUser(_ context.Context, id string) error {
	f.waitGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for index, record := range f.records {
		if record.ID == id {
			f.records = append(f.records[:index], f.records[index+1:]...)
			return nil
		}
	}
	return users.ErrUserNotFound
}

func (f *fakeCollaborator) waitGate() {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate == nil {
		return
	}
	if entered != nil {
		entered <- struct{}{}
	}
	<-gate
}

func (f *fakeCollaborator) counts() (list, create, update, remove int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.createCalls, f.updateCalls, f.deleteCalls
}

func numberedUsers(count int) []users.User {
	records := make([]users.User, 0, count)
	for index := 1; index <= count; index++ {
		records = append(records, users.User{
			ID:     fmt.Sprintf("id-%02d", index),
			Name:   fmt.Sprintf("User %02d", index),
			Email:  fmt.Sprintf("user%02d@example.com", index),
			Status: users.StatusActive,
		})
	}
	return records
}

func pageNames(records []users.User) []string {
	names := make([]string, len(records))
	for index, record := range records {
		names[index] = record.Name
	}
	return names
}
