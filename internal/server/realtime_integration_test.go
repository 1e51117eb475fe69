package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type streamEvent struct {
	eventType string
	data      string
}

func openEventStream(t *testing.T, serverURL string) *bufio.Reader {
	t.Helper()
	request, err := http.NewRequest(http.MethodGet, serverURL+"/api/users/events", http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", response.StatusCode)
	}
	if !strings.HasPrefix(response.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("unexpected content type %q", response.Header.Get("Content-Type"))
	}
	return bufio.NewReader(response.Body)
}

// nextEvent reads lines until an event of wantType has been fully received.
func nextEvent(t *testing.T, reader *bufio.Reader, wantType string) streamEvent {
	t.Helper()
	type readResult struct {
		line string
		err  error
	}
	deadline := time.After(5 * time.Second)
	current := streamEvent{}
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := reader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", wantType)
		case result := <-resultCh:
			if result.err != nil {
				t.Fatalf("failed to read stream: %v", result.err)
			}
			line := strings.TrimSpace(result.line)
			switch {
			case strings.HasPrefix(line, "event:"):
				current = streamEvent{eventType: strings.TrimSpace(strings.TrimPrefix(line, "event:"))}
			case strings.HasPrefix(line, "data:"):
				current.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				if current.eventType == wantType {
					return current
				}
			}
		}
	}
}

func waitForSubscribers(t *testing.T, changes *ChangeDispatcher, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for changes.SubscriberCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", want, changes.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUserEventStreamEmitsChangeEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	changes := NewChangeDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		UsersService: newSQLiteUsersService(t),
		Changes:      changes,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reader := openEventStream(t, server.URL)
	waitForSubscribers(t, changes, 1)

	response, err := http.Post(server.URL+"/api/users", "application/json", strings.NewReader(`{"name":"Ana","email":"ana@example.com"}`))
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(response.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	_ = response.Body.Close()
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", response.StatusCode)
	}

	event := nextEvent(t, reader, ChangeEventUsersChanged)
	var payload changeEventPayload
	if err := json.Unmarshal([]byte(event.data), &payload); err != nil {
		t.Fatalf("failed to decode event payload: %v", err)
	}
	if len(payload.UserIDs) != 1 || payload.UserIDs[0] != created.ID {
		t.Fatalf("unexpected user identifiers: %#v", payload.UserIDs)
	}
	if payload.Source != changeSourceBackend {
		t.Fatalf("unexpected source %q", payload.Source)
	}
}

func TestUserEventStreamSendsHeartbeats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, err := NewHTTPHandler(Dependencies{
		UsersService:      &stubUsersService{},
		Logger:            zap.NewNop(),
		HeartbeatInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reader := openEventStream(t, server.URL)
	event := nextEvent(t, reader, changeEventHeartbeat)
	if !strings.Contains(event.data, changeSourceBackend) {
		t.Fatalf("unexpected heartbeat payload %q", event.data)
	}
}
