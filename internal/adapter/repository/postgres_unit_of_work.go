package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

type postgresUnitOfWork struct {
	db *sqlx.DB
}

// NewPostgresUnitOfWork runs each Do in one database transaction.
func NewPostgresUnitOfWork(db *sqlx.DB) repository.UnitOfWork {
	return &postgresUnitOfWork{
		db: db,
	}
}

func (u *postgresUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	const op = "repository.postgres.UnitOfWork"

	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Internal("Failed to begin transaction", fmt.Errorf("%s: begin: %w", op, err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Internal("Failed to commit transaction", fmt.Errorf("%s: commit: %w", op, err))
	}
	return nil
}

type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) AddMessage(ctx context.Context, message *entity.Message) error {
	const op = "repository.postgres.AddMessage"

	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (:id, :chat_id, :sender_id, :receiver_id, :listing_id, :content, :created_at, :is_read)
	`, message)
	if err != nil {
		return errors.Internal("Failed to add message", fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (t *postgresTx) UpdateLastMessageTimestamp(ctx context.Context, chatID string, at time.Time) (bool, error) {
	const op = "repository.postgres.UpdateLastMessageTimestamp"

	res, err := t.tx.ExecContext(ctx, `
		UPDATE chats SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2) WHERE id = $1
	`, chatID, at)
	if err != nil {
		return false, errors.Internal("Failed to update chat", fmt.Errorf("%s: %w", op, err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Internal("Failed to update chat", fmt.Errorf("%s: rows affected: %w", op, err))
	}
	return rows > 0, nil
}
