package leadinfra

import (
	"context"

	"github.com/Abraxas-365/realtor/pkg/errx"
	"github.com/Abraxas-365/realtor/pkg/lead"
	"github.com/jmoiron/sqlx"
)

// Schema creates the interactions table when it is missing
const Schema = `
CREATE TABLE IF NOT EXISTS interactions (
    id          UUID PRIMARY KEY,
    session_key TEXT NOT NULL,
    email       TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    message     TEXT NOT NULL,
    reply       TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions (session_key, created_at DESC);
`

type PostgresInteractionRepository struct {
	db *sqlx.DB
}

func NewPostgresInteractionRepository(db *sqlx.DB) *PostgresInteractionRepository {
	return &PostgresInteractionRepository{db: db}
}

// Migrate applies Schema
func (r *PostgresInteractionRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return errx.Wrap(err, "failed to migrate interactions", errx.TypeInternal)
	}
	return nil
}

// Save inserts one interaction
func (r *PostgresInteractionRepository) Save(ctx context.Context, i *lead.Interaction) error {
	query := `
        INSERT INTO interactions (id, session_key, email, phone, message, reply, created_at)
        VALUES (:id, :session_key, :email, :phone, :message, :reply, :created_at)
    `

	if _, err := r.db.NamedExecContext(ctx, query, i); err != nil {
		return errx.Wrap(err, "failed to save interaction", errx.TypeInternal).
			WithDetail("session_key", i.SessionKey)
	}
	return nil
}

// FindBySession returns the newest interactions of a session first
func (r *PostgresInteractionRepository) FindBySession(ctx context.Context, sessionKey string, limit int) ([]lead.Interaction, error) {
	query := `
        SELECT id, session_key, email, phone, message, reply, created_at
        FROM interactions
        WHERE session_key = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	items := []lead.Interaction{}
	if err := r.db.SelectContext(ctx, &items, query, sessionKey, limit); err != nil {
		return nil, errx.Wrap(err, "failed to list interactions", errx.TypeInternal).
			WithDetail("session_key", sessionKey)
	}
	return items, nil
}
