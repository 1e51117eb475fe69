package panel

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient, dismissable message for the operator.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier receives notifications raised by panel actions.
type Notifier interface {
	Notify(notification Notification)
}

// Notifications queues notifications in arrival order and mirrors them to a logger.
type Notifications struct {
	mu      sync.Mutex
	pending []Notification
	logger  *zap.Logger
}

// NewNotifications constructs a queue. A nil logger discards log output.
func NewNotifications(logger *zap.Logger) *Notifications {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifications{logger: logger}
}

func (n *Notifications) Notify(notification Notification) {
	n.mu.Lock()
	n.pending = append(n.pending, notification)
	n.mu.Unlock()

	fields := []zap.Field{zap.String("level", string(notification.Level)), zap.String("message", notification.Message)}
	if notification.Level == LevelError {
		n.logger.Warn("panel notification", fields...)
		return
	}
	n.logger.Info("panel notification", fields...)
}

// Pending returns the notifications that have not been dismissed.
func (n *Notifications) Pending() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.pending...)
}

// Drain returns and dismisses every pending notification.
func (n *Notifications) Drain() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	drained := n.pending
	n.pending = nil
	return drained
}
