package notification

import (
	"context"
	"sync"
)

// SentNotification is one call captured by MockNotifier
type SentNotification struct {
	NoticeType   NoticeType
	Notification NotificationData
	Template     NoticeTemplate
}

// MockNotifier records notices instead of delivering them. Err, when set, is
// returned from every Send.
type MockNotifier struct {
	mu   sync.Mutex
	Err  error
	sent []SentNotification
}

func (m *MockNotifier) Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentNotification{NoticeType: noticeType, Notification: notification, Template: template})
	return nil
}

// Sent returns a copy of the recorded notices
func (m *MockNotifier) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentNotification(nil), m.sent...)
}
