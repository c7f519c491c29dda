package externalprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresAccountRepository implements AccountRepository on the provider_accounts table
type PostgresAccountRepository struct {
	db DBTX
}

func NewPostgresAccountRepository(db DBTX) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

const providerAccountColumns = `id, user_id, provider, provider_account_id, created_at`

func (r *PostgresAccountRepository) FindByProviderAccount(ctx context.Context, provider, providerAccountID string) (*ProviderAccount, error) {
	var a ProviderAccount
	err := r.db.QueryRow(ctx,
		`SELECT `+providerAccountColumns+` FROM provider_accounts WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	).Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find provider account: %w", err)
	}
	return &a, nil
}

func (r *PostgresAccountRepository) Create(ctx context.Context, account ProviderAccount) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO provider_accounts (`+providerAccountColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		account.ID, account.UserID, account.Provider, account.ProviderAccountID, account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAccountAlreadyLinked
		}
		return fmt.Errorf("failed to create provider account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepository) ListByUser(ctx context.Context, userID int64) ([]ProviderAccount, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+providerAccountColumns+` FROM provider_accounts WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider accounts: %w", err)
	}
	defer rows.Close()

	var result []ProviderAccount
	for rows.Next() {
		var a ProviderAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ProviderAccountID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan provider account: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
