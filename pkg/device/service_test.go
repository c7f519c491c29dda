package device

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupDeviceService(t *testing.T) (*DeviceService, *InMemDeviceRepository, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	repo := NewInMemDeviceRepository()
	return NewDeviceService(repo, WithClock(clock.Now)), repo, clock
}

func testRequestContext() RequestContext {
	return RequestContext{
		UserAgent:      chromeWindows120,
		AcceptLanguage: "en-US",
		IP:             "203.0.113.7",
		Timezone:       "UTC",
	}
}

func TestDeviceService_StateTransitions(t *testing.T) {
	service, _, _ := setupDeviceService(t)
	ctx := context.Background()
	rc := testRequestContext()

	d, state, err := service.CurrentState(ctx, 1, rc.DeviceHash())
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, StateUnknown, state)

	trusted, created, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, rc.DeviceHash(), trusted.DeviceHash)
	assert.Equal(t, trusted.CreatedAt, trusted.LastUsedAt)

	d, state, err = service.CurrentState(ctx, 1, rc.DeviceHash())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, StateTrusted, state)

	require.NoError(t, service.Revoke(ctx, trusted.ID))
	_, state, err = service.CurrentState(ctx, 1, rc.DeviceHash())
	require.NoError(t, err)
	assert.Equal(t, StateRevoked, state)

	err = service.Revoke(ctx, trusted.ID)
	assert.ErrorIs(t, err, ErrDeviceAlreadyRevoked)

	// a revoked row is never touched
	_, err = service.Touch(ctx, trusted.ID, "198.51.100.9")
	assert.ErrorIs(t, err, ErrDeviceAlreadyRevoked)
	d, _, err = service.CurrentState(ctx, 1, rc.DeviceHash())
	require.NoError(t, err)
	assert.Equal(t, rc.IP, d.IP)
	assert.Equal(t, trusted.LastUsedAt, d.LastUsedAt)
}

func TestDeviceService_TrustIsIdempotentForActiveRow(t *testing.T) {
	service, repo, clock := setupDeviceService(t)
	ctx := context.Background()
	rc := testRequestContext()

	first, created, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)
	require.True(t, created)

	clock.Advance(time.Minute)
	rc.IP = "198.51.100.2"
	second, created, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "198.51.100.2", second.IP)
	assert.Equal(t, 1, repo.Count())
}

func TestDeviceService_TouchAdvancesLastUsed(t *testing.T) {
	service, _, clock := setupDeviceService(t)
	ctx := context.Background()

	d, _, err := service.Trust(ctx, 1, testRequestContext())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	usedAt, err := service.Touch(ctx, d.ID, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, usedAt.After(d.LastUsedAt))

	got, err := service.GetDevice(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, usedAt, got.LastUsedAt)
	assert.Equal(t, "198.51.100.2", got.IP)
}

func TestDeviceService_RetrustAfterRevocationCreatesNewRow(t *testing.T) {
	service, repo, clock := setupDeviceService(t)
	ctx := context.Background()
	rc := testRequestContext()

	old, _, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, old.ID))

	clock.Advance(time.Minute)
	fresh, created, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Equal(t, 2, repo.Count())

	current, state, err := service.CurrentState(ctx, 1, rc.DeviceHash())
	require.NoError(t, err)
	assert.Equal(t, StateTrusted, state)
	assert.Equal(t, fresh.ID, current.ID)
}

func TestDeviceService_Errors(t *testing.T) {
	service, _, _ := setupDeviceService(t)
	ctx := context.Background()

	_, err := service.GetDevice(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	_, err = service.Touch(ctx, uuid.New(), "203.0.113.7")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	err = service.Revoke(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeviceService_ListUserDevices(t *testing.T) {
	service, _, clock := setupDeviceService(t)
	ctx := context.Background()

	rc := testRequestContext()
	_, _, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	rc.UserAgent = firefoxWindows
	newest, _, err := service.Trust(ctx, 1, rc)
	require.NoError(t, err)

	_, _, err = service.Trust(ctx, 2, rc)
	require.NoError(t, err)

	devices, err := service.ListUserDevices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, newest.ID, devices[0].ID)
}
