package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-hub/internal/models"
)

// MessageArchive is a durable sink for chat messages. The hub never reads from
// it; history replay is served from the in-memory MessageStore.
type MessageArchive interface {
	SaveMessage(ctx context.Context, msg models.Message) error
}

// PostgresArchive is a sqlx-backed archive.
type PostgresArchive struct {
	db *sqlx.DB
}

// NewPostgresArchive constructs PostgresArchive.
func NewPostgresArchive(db *sqlx.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

// SaveMessage inserts msg. Re-saving the same message id is a no-op.
func (r *PostgresArchive) SaveMessage(ctx context.Context, msg models.Message) error {
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO chat_messages (id, sender_id, sender_name, body, attachment_ref, kind, encrypted, sent_at)
        VALUES (:id, :sender_id, :sender_name, :body, :attachment_ref, :kind, :encrypted, :sent_at)
        ON CONFLICT (id) DO NOTHING`, msg)
	return err
}

// CountMessages returns the number of archived messages.
func (r *PostgresArchive) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM chat_messages`)
	return n, err
}
