package server

import (
	"context"
	"sync"
	"time"
)

const (
	ChangeEventUsersChanged = "users-changed"
	changeEventHeartbeat    = "heartbeat"
	changeSourceBackend     = "roster-backend"
)

// ChangeEvent announces that the user list changed. Subscribers re-fetch; the
// event carries ids only.
type ChangeEvent struct {
	EventType string
	UserIDs   []string
	Timestamp time.Time
}

// ChangeDispatcher fans change events out to every open subscription. Slow
// subscribers miss events instead of blocking publishers.
type ChangeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*changeSubscriber
	nextID      int64
	bufferSize  int
}

type changeSubscriber struct {
	id     int64
	stream chan ChangeEvent
}

func NewChangeDispatcher() *ChangeDispatcher {
	return &ChangeDispatcher{
		subscribers: make(map[int64]*changeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a subscriber until ctx ends or cleanup runs.
func (d *ChangeDispatcher) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	subscriber := &changeSubscriber{stream: make(chan ChangeEvent, d.bufferSize)}
	d.mu.Lock()
	d.nextID++
	subscriber.id = d.nextID
	d.subscribers[subscriber.id] = subscriber
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, subscriber.id)
			d.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *ChangeDispatcher) Publish(event ChangeEvent) {
	if event.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*changeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of open subscriptions.
func (d *ChangeDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}
