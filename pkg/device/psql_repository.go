package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresDeviceRepository implements DeviceRepository using PostgreSQL
type PostgresDeviceRepository struct {
	db DBTX
}

// NewPostgresDeviceRepository creates a new PostgreSQL device repository
func NewPostgresDeviceRepository(db DBTX) *PostgresDeviceRepository {
	return &PostgresDeviceRepository{db: db}
}

const trustedDeviceColumns = `id, user_id, device_hash, user_agent, accept_language, timezone, ip, created_at, last_used_at, revoked_at`

func scanTrustedDevice(row pgx.Row, extra ...any) (TrustedDevice, error) {
	var d TrustedDevice
	dest := []any{
		&d.ID, &d.UserID, &d.DeviceHash, &d.UserAgent, &d.AcceptLanguage,
		&d.Timezone, &d.IP, &d.CreatedAt, &d.LastUsedAt, &d.RevokedAt,
	}
	dest = append(dest, extra...)
	err := row.Scan(dest...)
	return d, err
}

func (r *PostgresDeviceRepository) FindCurrent(ctx context.Context, userID int64, deviceHash string) (*TrustedDevice, error) {
	query := `SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE user_id = $1 AND device_hash = $2
		ORDER BY created_at DESC
		LIMIT 1`

	d, err := scanTrustedDevice(r.db.QueryRow(ctx, query, userID, deviceHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find trusted device: %w", err)
	}
	return &d, nil
}

// CreateTrusted relies on the partial unique index over active rows. A concurrent
// insert for the same pair turns into an update, and xmax = 0 tells the two apart.
func (r *PostgresDeviceRepository) CreateTrusted(ctx context.Context, device TrustedDevice) (TrustedDevice, bool, error) {
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	if device.LastUsedAt.IsZero() {
		device.LastUsedAt = device.CreatedAt
	}

	query := `INSERT INTO trusted_devices
			(id, user_id, device_hash, user_agent, accept_language, timezone, ip, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, device_hash) WHERE revoked_at IS NULL
		DO UPDATE SET last_used_at = EXCLUDED.last_used_at, ip = EXCLUDED.ip
		RETURNING ` + trustedDeviceColumns + `, (xmax = 0) AS inserted`

	var created bool
	stored, err := scanTrustedDevice(r.db.QueryRow(ctx, query,
		device.ID, device.UserID, device.DeviceHash, device.UserAgent, device.AcceptLanguage,
		device.Timezone, device.IP, device.CreatedAt, device.LastUsedAt,
	), &created)
	if err != nil {
		return TrustedDevice{}, false, fmt.Errorf("failed to create trusted device: %w", err)
	}
	return stored, created, nil
}

func (r *PostgresDeviceRepository) Touch(ctx context.Context, id uuid.UUID, ip string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE trusted_devices SET last_used_at = $2, ip = $3 WHERE id = $1 AND revoked_at IS NULL`, id, at, ip)
	if err != nil {
		return fmt.Errorf("failed to touch trusted device: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trusted_devices WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check trusted device: %w", err)
	}
	if !exists {
		return ErrDeviceNotFound
	}
	return ErrDeviceAlreadyRevoked
}

func (r *PostgresDeviceRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	return RevokeWith(ctx, r.db, id, at)
}

// RevokeWith sets revoked_at once using the given connection or transaction
func RevokeWith(ctx context.Context, db DBTX, id uuid.UUID, at time.Time) error {
	tag, err := db.Exec(ctx, `UPDATE trusted_devices SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to revoke trusted device: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trusted_devices WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check trusted device: %w", err)
	}
	if !exists {
		return ErrDeviceNotFound
	}
	return ErrDeviceAlreadyRevoked
}

func (r *PostgresDeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*TrustedDevice, error) {
	query := `SELECT ` + trustedDeviceColumns + ` FROM trusted_devices WHERE id = $1`

	d, err := scanTrustedDevice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trusted device: %w", err)
	}
	return &d, nil
}

func (r *PostgresDeviceRepository) ListByUser(ctx context.Context, userID int64) ([]TrustedDevice, error) {
	query := `SELECT ` + trustedDeviceColumns + `
		FROM trusted_devices
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted devices: %w", err)
	}
	defer rows.Close()

	devices := make([]TrustedDevice, 0)
	for rows.Next() {
		d, err := scanTrustedDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trusted device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trusted devices: %w", err)
	}
	return devices, nil
}
