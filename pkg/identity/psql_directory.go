package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresDirectory reads the users table
type PostgresDirectory struct {
	db DBTX
}

func NewPostgresDirectory(db DBTX) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const userColumns = `id, email, name, role, session_version, image, provider_image`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.SessionVersion, &u.Image, &u.ProviderImage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (d *PostgresDirectory) FindByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(d.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return u, err
}

func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(d.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, NormalizeEmail(email)))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return u, err
}

func (d *PostgresDirectory) CreateFromOAuth(ctx context.Context, o OAuthIdentity) (*User, error) {
	u, err := scanUser(d.db.QueryRow(ctx,
		`INSERT INTO users (email, name, role, provider_image)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		NormalizeEmail(o.Email), o.Name, DefaultRole, o.Image,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}
