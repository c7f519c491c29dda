package notification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	err := nm.RegisterNotification("", EmailSystem, NoticeTemplate{Text: "x"})
	assert.Error(t, err)

	err = nm.RegisterNotification(NewDeviceAlertNotice, EmailSystem, NoticeTemplate{Subject: "only a subject"})
	assert.Error(t, err)

	err = nm.RegisterNotification(NewDeviceAlertNotice, EmailSystem, NoticeTemplate{Text: "hi"})
	assert.NoError(t, err)
}

func TestSend_Errors(t *testing.T) {
	nm := NewNotificationManager()
	ctx := context.Background()

	err := nm.Send(ctx, NewDeviceAlertNotice, EmailSystem, NotificationData{To: "a@example.com"})
	assert.ErrorContains(t, err, "no templates registered")

	require.NoError(t, nm.RegisterNotification(NewDeviceAlertNotice, EmailSystem, NoticeTemplate{Text: "hi"}))
	err = nm.Send(ctx, NewDeviceAlertNotice, NotificationSystem("sms"), NotificationData{To: "a@example.com"})
	assert.ErrorContains(t, err, "no template registered for system")

	err = nm.Send(ctx, NewDeviceAlertNotice, EmailSystem, NotificationData{To: "a@example.com"})
	assert.ErrorContains(t, err, "no notifier registered")
}

func TestDefaultTemplatesAreEmbedded(t *testing.T) {
	mock := &MockNotifier{}
	nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, mock), WithDefaultTemplates())
	require.NoError(t, err)

	alerts := NewDeviceAlertNotifier(nm)
	err = alerts.SendNewDeviceAlert(context.Background(), NewDeviceAlert{
		Email:      "dana@example.com",
		UserAgent:  "Mozilla/5.0",
		IP:         "203.0.113.7",
		DisableURL: "https://app.example.com/security/devices/disable?token=abc",
	})
	require.NoError(t, err)

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, NewDeviceAlertNotice, sent[0].NoticeType)
	assert.Equal(t, "dana@example.com", sent[0].Notification.To)
	assert.Equal(t, "dana@example.com", sent[0].Notification.Data["Name"])
	assert.Contains(t, sent[0].Template.Html, "{{.DisableURL}}")
	assert.Contains(t, sent[0].Template.Text, "{{.DisableURL}}")
}

func TestSendNewDeviceAlert_RequiresEmail(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, &MockNotifier{}), WithDefaultTemplates())
	require.NoError(t, err)

	err = NewDeviceAlertNotifier(nm).SendNewDeviceAlert(context.Background(), NewDeviceAlert{})
	assert.Error(t, err)
}

func TestSendNewDeviceAlert_PropagatesNotifierError(t *testing.T) {
	mock := &MockNotifier{Err: errors.New("smtp unavailable")}
	nm, err := NewNotificationManagerWithOptions(WithNotifier(EmailSystem, mock), WithDefaultTemplates())
	require.NoError(t, err)

	err = NewDeviceAlertNotifier(nm).SendNewDeviceAlert(context.Background(), NewDeviceAlert{Email: "a@example.com"})
	assert.ErrorContains(t, err, "smtp unavailable")
}

func TestBuildMessage(t *testing.T) {
	tmpl := NoticeTemplate{
		Subject: "Hello {{.Name}}",
		Text:    "Link: {{.DisableURL}}",
		Html:    `<a href="{{.DisableURL}}">{{.Name}}</a>`,
	}
	msg, err := BuildMessage("security@example.com", NotificationData{
		To:   "erin@example.com",
		Data: map[string]string{"Name": "<Erin>", "DisableURL": "https://app.example.com/x?token=t"},
	}, tmpl)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "erin@example.com")
	assert.Contains(t, raw, "Hello <Erin>")
	assert.True(t, strings.Contains(raw, "&lt;Erin&gt;"))

	_, err = BuildMessage("security@example.com", NotificationData{}, tmpl)
	assert.Error(t, err)
}
