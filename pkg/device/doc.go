// Package device derives coarse device fingerprints from request metadata and
// stores per-user trusted-device records.
//
// A fingerprint is the (browser family, OS family, device type) triple parsed
// from the User-Agent header. Its SHA-256 hex digest is the device hash used as
// the trust key, so browser point releases map to the same device.
//
// # Basic Usage
//
//	repo := device.NewPostgresDeviceRepository(pool)
//	service := device.NewDeviceService(repo)
//
//	rc := device.ExtractRequestContext(r)
//	current, state, err := service.CurrentState(ctx, userID, rc.DeviceHash())
//	switch state {
//	case device.StateRevoked:
//		// deny
//	case device.StateUnknown:
//		d, created, err := service.Trust(ctx, userID, rc)
//	case device.StateTrusted:
//		_, err = service.Touch(ctx, current.ID, rc.IP)
//	}
//
// The state is always derived from the most recent row for the pair. Revocation
// is terminal for a row; trusting the device again inserts a new row.
//
// At most one unrevoked row exists per (user, device hash). PostgreSQL enforces
// this with a partial unique index and CreateTrusted upserts against it.
package device
