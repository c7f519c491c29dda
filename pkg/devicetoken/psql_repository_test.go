package devicetoken_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/trustgate/pkg/db/dbtest"
	"github.com/tendant/trustgate/pkg/device"
	"github.com/tendant/trustgate/pkg/devicetoken"
)

func TestPostgresRepository_Redeem(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	userID := dbtest.InsertUser(t, pool, "tokens@example.com")

	devices := device.NewPostgresDeviceRepository(pool)
	d, _, err := devices.CreateTrusted(ctx, device.TrustedDevice{UserID: userID, DeviceHash: device.HashUserAgent("Mozilla/5.0")})
	require.NoError(t, err)

	service := devicetoken.NewService(devicetoken.NewPostgresRepository(pool), "https://app.example.com")

	raw, err := service.Issue(ctx, userID, d.ID)
	require.NoError(t, err)

	const attempts = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Redeem(ctx, raw)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, devicetoken.ErrTokenAlreadyUsed)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)

	stored, err := devices.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsRevoked())
}

func TestPostgresRepository_ExpiredTokenHasNoEffect(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	userID := dbtest.InsertUser(t, pool, "expired@example.com")

	devices := device.NewPostgresDeviceRepository(pool)
	d, _, err := devices.CreateTrusted(ctx, device.TrustedDevice{UserID: userID, DeviceHash: device.HashUserAgent("Mozilla/5.0")})
	require.NoError(t, err)

	now := time.Now().UTC()
	clock := func() time.Time { return now }
	repo := devicetoken.NewPostgresRepository(pool)
	service := devicetoken.NewService(repo, "https://app.example.com", devicetoken.WithClock(clock))

	raw, err := service.Issue(ctx, userID, d.ID)
	require.NoError(t, err)

	token, err := repo.GetByHash(ctx, devicetoken.HashToken(raw))
	require.NoError(t, err)
	_, err = repo.Consume(ctx, token.ID, now.Add(16*time.Minute))
	assert.ErrorIs(t, err, devicetoken.ErrTokenExpired)

	stored, err := devices.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRevoked())

	deleted, err := repo.DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
