package token

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// IssuedToken is an append-only audit record of a signed credential token.
// Records are only ever created, never mutated.
type IssuedToken struct {
	ID        string
	UserID    string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Store records issued tokens for audit and session tracking.
type Store interface {
	Record(ctx context.Context, t IssuedToken) error
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists issued tokens in PostgreSQL.
type PostgresStore struct {
	db DB
}

// NewPostgresStore builds a Postgres-backed issued-token store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record appends an issued-token audit row.
func (s *PostgresStore) Record(ctx context.Context, t IssuedToken) error {
	tokenID, err := uuid.Parse(t.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(t.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO user_tokens (id, user_id, token, issued_at, expires_at)
        VALUES ($1, $2, $3, $4, $5)`, tokenID, userID, t.Token, t.IssuedAt.UTC(), t.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("record issued token: %w", err)
	}
	return nil
}
