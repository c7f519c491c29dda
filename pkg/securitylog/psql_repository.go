package securitylog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

type PostgresRepository struct {
	db DBTX
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry SecurityLog) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode security log metadata: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO security_logs (id, user_id, type, ip, user_agent, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, string(entry.Type), entry.IP, entry.UserAgent, raw, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]SecurityLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, type, ip, user_agent, metadata, created_at
		 FROM security_logs
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list security logs: %w", err)
	}
	defer rows.Close()

	logs := make([]SecurityLog, 0)
	for rows.Next() {
		var (
			entry     SecurityLog
			eventType string
			raw       []byte
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &eventType, &entry.IP, &entry.UserAgent, &raw, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan security log: %w", err)
		}
		entry.Type = EventType(eventType)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode security log metadata: %w", err)
			}
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security logs: %w", err)
	}
	return logs, nil
}
