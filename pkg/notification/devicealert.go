package notification

import (
	"context"
	"fmt"
)

// NewDeviceAlert is the content of the email sent after a login from an unseen device
type NewDeviceAlert struct {
	Name       string
	Email      string
	UserAgent  string
	IP         string
	Timezone   string
	DisableURL string
}

// DeviceAlertNotifier sends new-device alerts through a NotificationManager
type DeviceAlertNotifier struct {
	manager *NotificationManager
}

func NewDeviceAlertNotifier(manager *NotificationManager) *DeviceAlertNotifier {
	return &DeviceAlertNotifier{manager: manager}
}

func (n *DeviceAlertNotifier) SendNewDeviceAlert(ctx context.Context, alert NewDeviceAlert) error {
	if alert.Email == "" {
		return fmt.Errorf("new device alert requires an email address")
	}
	name := alert.Name
	if name == "" {
		name = alert.Email
	}

	return n.manager.Send(ctx, NewDeviceAlertNotice, EmailSystem, NotificationData{
		To: alert.Email,
		Data: map[string]string{
			"Name":       name,
			"UserAgent":  alert.UserAgent,
			"IP":         alert.IP,
			"Timezone":   alert.Timezone,
			"DisableURL": alert.DisableURL,
		},
	})
}
