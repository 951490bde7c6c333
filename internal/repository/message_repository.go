package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CHUDOAL/Valve-sait/internal/models"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create inserts msgs in order inside one transaction and returns them with
// their assigned sequence numbers.
func (r *MessageRepository) Create(ctx context.Context, msgs ...models.Message) ([]models.Message, error) {
	const query = `
		INSERT INTO messages (id, author_id, content, kind, media_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if err := tx.QueryRow(ctx, query,
			msg.ID,
			msg.AuthorID,
			msg.Content,
			msg.Kind,
			msg.MediaRef,
			msg.CreatedAt,
		).Scan(&msg.Seq); err != nil {
			return nil, fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
		out = append(out, msg)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// ListRecent returns up to limit messages joined with their authors, newest first.
func (r *MessageRepository) ListRecent(ctx context.Context, limit int) ([]models.MessageWithAuthor, error) {
	const query = `
		SELECT m.id, m.seq, m.author_id, m.content, m.kind, m.media_ref, m.created_at,
		       u.display_name, u.avatar_ref
		FROM messages m
		JOIN users u ON u.id = m.author_id
		ORDER BY m.created_at DESC, m.seq DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// ListRecentText is ListRecent restricted to text messages.
func (r *MessageRepository) ListRecentText(ctx context.Context, limit int) ([]models.MessageWithAuthor, error) {
	const query = `
		SELECT m.id, m.seq, m.author_id, m.content, m.kind, m.media_ref, m.created_at,
		       u.display_name, u.avatar_ref
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.kind = 'text'
		ORDER BY m.created_at DESC, m.seq DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *MessageRepository) list(ctx context.Context, query string, limit int) ([]models.MessageWithAuthor, error) {
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.MessageWithAuthor
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func scanMessage(row pgx.Row) (models.MessageWithAuthor, error) {
	var msg models.MessageWithAuthor
	err := row.Scan(
		&msg.ID,
		&msg.Seq,
		&msg.AuthorID,
		&msg.Content,
		&msg.Kind,
		&msg.MediaRef,
		&msg.CreatedAt,
		&msg.DisplayName,
		&msg.AvatarRef,
	)
	return msg, err
}
