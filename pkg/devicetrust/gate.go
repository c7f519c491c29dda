// Package devicetrust decides at login whether the originating device may
// proceed. The verdict is derived from durable device state on every call;
// alerts and audit events run afterwards through a Dispatcher and can never
// change it.
package devicetrust

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/trustgate/pkg/device"
	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/notification"
	"github.com/tendant/trustgate/pkg/securitylog"
)

type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

const (
	TaskLoginNewDevice = "log_new_device"
	TaskLoginBlocked   = "log_blocked_device"
	TaskNewDeviceAlert = "new_device_alert"
)

// Verdict is the outcome of one evaluation
type Verdict struct {
	Decision Decision
	State    device.TrustState
	Device   *device.TrustedDevice
}

func (v Verdict) Allowed() bool {
	return v.Decision == Allow
}

// DeviceStore is the part of device.DeviceService the gate uses
type DeviceStore interface {
	CurrentState(ctx context.Context, userID int64, deviceHash string) (*device.TrustedDevice, device.TrustState, error)
	Trust(ctx context.Context, userID int64, rc device.RequestContext) (device.TrustedDevice, bool, error)
	Touch(ctx context.Context, id uuid.UUID, ip string) (time.Time, error)
}

// LinkIssuer mints a single-use disable link for a new device
type LinkIssuer interface {
	IssueDisableLink(ctx context.Context, userID int64, deviceID uuid.UUID) (string, error)
}

// AlertNotifier emails the user about a new device
type AlertNotifier interface {
	SendNewDeviceAlert(ctx context.Context, alert notification.NewDeviceAlert) error
}

type Gate struct {
	devices    DeviceStore
	links      LinkIssuer
	alerts     AlertNotifier
	events     securitylog.Recorder
	dispatcher Dispatcher
}

type Option func(*Gate)

func WithDispatcher(d Dispatcher) Option {
	return func(g *Gate) {
		g.dispatcher = d
	}
}

func NewGate(devices DeviceStore, links LinkIssuer, alerts AlertNotifier, events securitylog.Recorder, opts ...Option) *Gate {
	g := &Gate{
		devices:    devices,
		links:      links,
		alerts:     alerts,
		events:     events,
		dispatcher: SyncDispatcher{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate returns the verdict for an authenticated user on the device
// described by rc. A storage failure denies with a non-nil error.
func (g *Gate) Evaluate(ctx context.Context, user identity.User, provider string, rc device.RequestContext) (Verdict, error) {
	verdict, tasks, err := g.decide(ctx, user, provider, rc)
	if err != nil {
		LoginVerdictsTotal.WithLabelValues("error", string(Deny)).Inc()
		slog.Error("Device trust evaluation failed", "user_id", user.ID, "error", err)
		return Verdict{Decision: Deny, State: device.StateUnknown}, err
	}

	LoginVerdictsTotal.WithLabelValues(string(verdict.State), string(verdict.Decision)).Inc()
	slog.Info("Device trust verdict", "user_id", user.ID, "state", verdict.State, "decision", verdict.Decision)

	if len(tasks) > 0 {
		g.dispatcher.Dispatch(ctx, tasks...)
	}
	return verdict, nil
}

func (g *Gate) decide(ctx context.Context, user identity.User, provider string, rc device.RequestContext) (Verdict, []Task, error) {
	current, state, err := g.devices.CurrentState(ctx, user.ID, rc.DeviceHash())
	if err != nil {
		return Verdict{}, nil, err
	}

	switch state {
	case device.StateRevoked:
		return Verdict{Decision: Deny, State: state, Device: current},
			[]Task{g.blockedTask(user, provider, rc, current)}, nil

	case device.StateTrusted:
		at, err := g.devices.Touch(ctx, current.ID, rc.IP)
		if errors.Is(err, device.ErrDeviceAlreadyRevoked) {
			// revoked after the lookup
			return Verdict{Decision: Deny, State: device.StateRevoked, Device: current},
				[]Task{g.blockedTask(user, provider, rc, current)}, nil
		}
		if err != nil {
			return Verdict{}, nil, err
		}
		current.LastUsedAt = at
		current.IP = rc.IP
		return Verdict{Decision: Allow, State: state, Device: current}, nil, nil
	}

	trusted, created, err := g.devices.Trust(ctx, user.ID, rc)
	if err != nil {
		return Verdict{}, nil, err
	}
	if !created {
		// a concurrent login registered the device first
		return Verdict{Decision: Allow, State: device.StateTrusted, Device: &trusted}, nil, nil
	}
	return Verdict{Decision: Allow, State: device.StateUnknown, Device: &trusted},
		[]Task{g.newDeviceTask(user, provider, rc, trusted), g.alertTask(user, rc, trusted)}, nil
}

func (g *Gate) blockedTask(user identity.User, provider string, rc device.RequestContext, d *device.TrustedDevice) Task {
	return Task{
		Name: TaskLoginBlocked,
		Run: func(ctx context.Context) error {
			g.record(ctx, securitylog.Event{
				UserID:    securitylog.UserID(user.ID),
				Type:      securitylog.EventLoginBlockedRevokedDevice,
				IP:        rc.IP,
				UserAgent: rc.UserAgent,
				Metadata: map[string]any{
					"device_id": d.ID.String(),
					"provider":  provider,
				},
			})
			return nil
		},
	}
}

func (g *Gate) newDeviceTask(user identity.User, provider string, rc device.RequestContext, d device.TrustedDevice) Task {
	return Task{
		Name: TaskLoginNewDevice,
		Run: func(ctx context.Context) error {
			g.record(ctx, securitylog.Event{
				UserID:    securitylog.UserID(user.ID),
				Type:      securitylog.EventLoginNewDevice,
				IP:        rc.IP,
				UserAgent: rc.UserAgent,
				Metadata: map[string]any{
					"device_id":       d.ID.String(),
					"timezone":        rc.Timezone,
					"accept_language": rc.AcceptLanguage,
					"provider":        provider,
				},
			})
			return nil
		},
	}
}

func (g *Gate) alertTask(user identity.User, rc device.RequestContext, d device.TrustedDevice) Task {
	return Task{
		Name: TaskNewDeviceAlert,
		Run: func(ctx context.Context) error {
			if g.links == nil {
				return fmt.Errorf("no disable link issuer configured")
			}
			link, err := g.links.IssueDisableLink(ctx, user.ID, d.ID)
			if err != nil {
				return fmt.Errorf("failed to issue disable link: %w", err)
			}
			if g.alerts == nil {
				slog.Debug("No alert notifier configured, skipping new device email", "user_id", user.ID)
				return nil
			}
			return g.alerts.SendNewDeviceAlert(ctx, notification.NewDeviceAlert{
				Name:       user.Name,
				Email:      user.Email,
				UserAgent:  rc.UserAgent,
				IP:         rc.IP,
				Timezone:   rc.Timezone,
				DisableURL: link,
			})
		},
	}
}

func (g *Gate) record(ctx context.Context, event securitylog.Event) {
	if g.events != nil {
		g.events.Record(ctx, event)
	}
}
