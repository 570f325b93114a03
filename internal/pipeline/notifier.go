package pipeline

import (
	"context"
	"sync"

	"fjacquet/fintrack/internal/logging"
)

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is one toast shown to the user.
type Notification struct {
	UserID  string `json:"-"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the log. It is the default when no
// UI channel is attached, e.g. for the CLI.
type LogNotifier struct {
	Logger logging.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, n Notification) {
	logger := logging.OrDefault(l.Logger).WithFields(
		logging.F(logging.FieldUserID, n.UserID),
		logging.F(logging.FieldStatus, string(n.Level)))
	if n.Level == LevelError {
		logger.Warn(n.Message)
		return
	}
	logger.Info(n.Message)
}

// RecordingNotifier keeps every notification in memory.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

// Notify implements Notifier.
func (r *RecordingNotifier) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the notifications received so far.
func (r *RecordingNotifier) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *RecordingNotifier) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
