package devicetoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tendant/trustgate/pkg/device"
)

// TxBeginner is a pool that can also open transactions, such as *pgxpool.Pool
type TxBeginner interface {
	device.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresRepository struct {
	db TxBeginner
}

func NewPostgresRepository(db TxBeginner) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const tokenColumns = `id, user_id, device_id, token_hash, expires_at, used_at, created_at`

func scanToken(row pgx.Row) (DisableToken, error) {
	var t DisableToken
	err := row.Scan(&t.ID, &t.UserID, &t.DeviceID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	return t, err
}

func (r *PostgresRepository) Create(ctx context.Context, token DisableToken) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO device_disable_tokens (id, user_id, device_id, token_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.DeviceID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert disable token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*DisableToken, error) {
	t, err := scanToken(r.db.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM device_disable_tokens WHERE token_hash = $1`, tokenHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get disable token: %w", err)
	}
	return &t, nil
}

// Consume claims the token with a conditional update, so of two concurrent
// redemptions only one sees a row come back. The device is revoked in the
// same transaction.
func (r *PostgresRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (DisableToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return DisableToken{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := scanToken(tx.QueryRow(ctx,
		`UPDATE device_disable_tokens
		 SET used_at = $2
		 WHERE id = $1 AND used_at IS NULL AND expires_at >= $2
		 RETURNING `+tokenColumns, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DisableToken{}, r.consumeFailure(ctx, tx, id)
		}
		return DisableToken{}, fmt.Errorf("failed to mark disable token used: %w", err)
	}

	if err := device.RevokeWith(ctx, tx, t.DeviceID, at); err != nil && !errors.Is(err, device.ErrDeviceAlreadyRevoked) {
		return DisableToken{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DisableToken{}, fmt.Errorf("failed to commit token redemption: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) consumeFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var usedAt *time.Time
	err := tx.QueryRow(ctx, `SELECT used_at FROM device_disable_tokens WHERE id = $1`, id).Scan(&usedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to check disable token: %w", err)
	}
	if usedAt != nil {
		return ErrTokenAlreadyUsed
	}
	return ErrTokenExpired
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM device_disable_tokens WHERE used_at IS NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired disable tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
