// Package notification renders notice templates and delivers them through
// registered notifiers. Email is delivered over SMTP with go-mail.
//
// # Basic Usage
//
//	manager, err := notification.NewNotificationManagerWithOptions(
//		notification.WithSMTP(smtpConfig),
//		notification.WithDefaultTemplates(),
//	)
//	alerts := notification.NewDeviceAlertNotifier(manager)
//	err = alerts.SendNewDeviceAlert(ctx, notification.NewDeviceAlert{
//		Name:       user.Name,
//		Email:      user.Email,
//		UserAgent:  rc.UserAgent,
//		IP:         rc.IP,
//		DisableURL: link,
//	})
//
// Templates are embedded from templates/email. Subject and text bodies use
// text/template; HTML bodies use html/template, so values are escaped.
//
// MockNotifier records notices for tests.
package notification
