package notification

import "context"

// NotificationSystem represents a delivery channel (e.g., email)
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., a new-device alert)
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	NewDeviceAlertNotice NoticeType = "new_device_alert"
)

// NotificationData is one rendered-to-be notice for a recipient
type NotificationData struct {
	To   string            // Recipient identifier (email address)
	Data map[string]string // Template variables
}

// NoticeTemplate holds the text/template and html/template sources of a notice
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type Notifier interface {
	Send(ctx context.Context, noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
