package session

import (
	"sync"

	"github.com/SAP-F-2025/exam-client/internal/utils"
)

type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notifier is the explicit notification service the controller talks to
// instead of reaching into ambient global state. Embedders plug in their
// own UI surface; the default just logs.
type Notifier interface {
	Show(kind NotificationKind, message string)
}

type logNotifier struct {
	logger utils.Logger
}

func NewLogNotifier(logger utils.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Show(kind NotificationKind, message string) {
	switch kind {
	case NotifyError:
		n.logger.Error("Notification", "kind", kind, "message", message)
	case NotifyWarning:
		n.logger.Warn("Notification", "kind", kind, "message", message)
	default:
		n.logger.Info("Notification", "kind", kind, "message", message)
	}
}

// Notification is one recorded Show call.
type Notification struct {
	Kind    NotificationKind
	Message string
}

// RecordingNotifier captures notifications for tests.
type RecordingNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Show(kind NotificationKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, Notification{Kind: kind, Message: message})
}

func (n *RecordingNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.notifications...)
}
