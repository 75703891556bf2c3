package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

const messageColumns = `id, chat_id, sender_id, receiver_id, listing_id, content, created_at, is_read`

type postgresMessageRepository struct {
	db *sqlx.DB
}

// NewPostgresMessageRepository reads the messages table. Writes go through
// the unit of work.
func NewPostgresMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &postgresMessageRepository{
		db: db,
	}
}

func (r *postgresMessageRepository) CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error) {
	const op = "repository.postgres.CountSentSince"

	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM messages WHERE sender_id = $1 AND created_at >= $2
	`, senderID, since)
	if err != nil {
		return 0, errors.Internal("Failed to count sent messages", fmt.Errorf("%s: %w", op, err))
	}
	return n, nil
}

func (r *postgresMessageRepository) OldestSentSince(ctx context.Context, senderID string, since time.Time) (time.Time, bool, error) {
	const op = "repository.postgres.OldestSentSince"

	var oldest sql.NullTime
	err := r.db.GetContext(ctx, &oldest, `
		SELECT MIN(created_at) FROM messages WHERE sender_id = $1 AND created_at >= $2
	`, senderID, since)
	if err != nil {
		return time.Time{}, false, errors.Internal("Failed to look up sent messages", fmt.Errorf("%s: %w", op, err))
	}
	if !oldest.Valid {
		return time.Time{}, false, nil
	}
	return oldest.Time.UTC(), true, nil
}

func (r *postgresMessageRepository) GetMessages(ctx context.Context, chatID string, take int, before *time.Time) ([]*entity.Message, error) {
	const op = "repository.postgres.GetMessages"

	messages := []*entity.Message{}
	err := r.db.SelectContext(ctx, &messages, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE chat_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, chatID, before, take)
	if err != nil {
		return nil, errors.Internal("Failed to list messages", fmt.Errorf("%s: %w", op, err))
	}
	for _, m := range messages {
		m.CreatedAt = m.CreatedAt.UTC()
	}
	return messages, nil
}

func (r *postgresMessageRepository) MarkReadUpTo(ctx context.Context, chatID, readerID string, upTo time.Time) (int, error) {
	const op = "repository.postgres.MarkReadUpTo"

	res, err := r.db.ExecContext(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE chat_id = $1 AND receiver_id = $2 AND NOT is_read AND created_at <= $3
	`, chatID, readerID, upTo)
	if err != nil {
		return 0, errors.Internal("Failed to mark messages as read", fmt.Errorf("%s: %w", op, err))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Internal("Failed to mark messages as read", fmt.Errorf("%s: rows affected: %w", op, err))
	}
	return int(rows), nil
}
