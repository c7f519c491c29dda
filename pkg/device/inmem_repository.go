package device

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemDeviceRepository implements DeviceRepository using an in-memory map
type InMemDeviceRepository struct {
	devices map[uuid.UUID]TrustedDevice
	mu      sync.Mutex
}

// NewInMemDeviceRepository creates a new in-memory device repository
func NewInMemDeviceRepository() *InMemDeviceRepository {
	return &InMemDeviceRepository{
		devices: make(map[uuid.UUID]TrustedDevice),
	}
}

func (r *InMemDeviceRepository) FindCurrent(ctx context.Context, userID int64, deviceHash string) (*TrustedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current *TrustedDevice
	for _, d := range r.devices {
		if d.UserID != userID || d.DeviceHash != deviceHash {
			continue
		}
		if current == nil || d.CreatedAt.After(current.CreatedAt) {
			found := d
			current = &found
		}
	}
	return current, nil
}

func (r *InMemDeviceRepository) CreateTrusted(ctx context.Context, device TrustedDevice) (TrustedDevice, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, d := range r.devices {
		if d.UserID == device.UserID && d.DeviceHash == device.DeviceHash && d.RevokedAt == nil {
			d.LastUsedAt = device.LastUsedAt
			d.IP = device.IP
			r.devices[id] = d
			slog.Debug("Active device already exists", "user_id", device.UserID, "device_id", d.ID)
			return d, false, nil
		}
	}

	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	if device.LastUsedAt.IsZero() {
		device.LastUsedAt = device.CreatedAt
	}
	device.RevokedAt = nil
	r.devices[device.ID] = device
	slog.Debug("Trusted device created", "user_id", device.UserID, "device_id", device.ID)
	return device, true, nil
}

func (r *InMemDeviceRepository) Touch(ctx context.Context, id uuid.UUID, ip string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	if d.RevokedAt != nil {
		return ErrDeviceAlreadyRevoked
	}
	d.LastUsedAt = at
	d.IP = ip
	r.devices[id] = d
	return nil
}

func (r *InMemDeviceRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revokeLocked(id, at)
}

func (r *InMemDeviceRepository) revokeLocked(id uuid.UUID, at time.Time) error {
	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	if d.RevokedAt != nil {
		return ErrDeviceAlreadyRevoked
	}
	revokedAt := at
	d.RevokedAt = &revokedAt
	r.devices[id] = d
	return nil
}

func (r *InMemDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*TrustedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *InMemDeviceRepository) ListByUser(ctx context.Context, userID int64) ([]TrustedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := make([]TrustedDevice, 0)
	for _, d := range r.devices {
		if d.UserID == userID {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].CreatedAt.After(devices[j].CreatedAt)
	})
	return devices, nil
}

// Count returns the number of stored rows
func (r *InMemDeviceRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
