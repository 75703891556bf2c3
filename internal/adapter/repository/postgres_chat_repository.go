package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

const chatColumns = `id, buyer_id, seller_id, listing_id, created_at, last_message_at, buyer_archived, seller_archived`

type postgresChatRepository struct {
	db *sqlx.DB
}

// NewPostgresChatRepository stores chats in the chats table.
func NewPostgresChatRepository(db *sqlx.DB) repository.ChatRepository {
	return &postgresChatRepository{
		db: db,
	}
}

func (r *postgresChatRepository) FindByParticipants(ctx context.Context, buyerID, sellerID string, listingID *string) (*entity.Chat, error) {
	const op = "repository.postgres.FindByParticipants"

	var chat entity.Chat
	err := r.db.GetContext(ctx, &chat, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE buyer_id = $1 AND seller_id = $2 AND COALESCE(listing_id, '') = COALESCE($3, '')
	`, buyerID, sellerID, listingID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Internal("Failed to find chat", fmt.Errorf("%s: %w", op, err))
	}
	return normalizeChat(&chat), nil
}

func (r *postgresChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	const op = "repository.postgres.GetChatByID"

	var chat entity.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Internal("Failed to get chat", fmt.Errorf("%s: %w", op, err))
	}
	return normalizeChat(&chat), nil
}

func (r *postgresChatRepository) Add(ctx context.Context, chat *entity.Chat) error {
	const op = "repository.postgres.AddChat"

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES (:id, :buyer_id, :seller_id, :listing_id, :created_at, :last_message_at, :buyer_archived, :seller_archived)
	`, chat)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Conflict("Chat already exists")
		}
		return errors.Internal("Failed to create chat", fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

func (r *postgresChatRepository) GetInbox(ctx context.Context, userID string, take, skip int) ([]*entity.Chat, error) {
	const op = "repository.postgres.GetInbox"

	chats := []*entity.Chat{}
	err := r.db.SelectContext(ctx, &chats, `
		SELECT `+chatColumns+`
		FROM chats
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, take, skip)
	if err != nil {
		return nil, errors.Internal("Failed to list chats", fmt.Errorf("%s: %w", op, err))
	}
	for _, c := range chats {
		normalizeChat(c)
	}
	return chats, nil
}

func (r *postgresChatRepository) SetArchived(ctx context.Context, chatID string, role entity.ParticipantRole, archived bool) error {
	const op = "repository.postgres.SetArchived"

	query := `UPDATE chats SET seller_archived = $2 WHERE id = $1`
	if role == entity.RoleBuyer {
		query = `UPDATE chats SET buyer_archived = $2 WHERE id = $1`
	}

	res, err := r.db.ExecContext(ctx, query, chatID, archived)
	if err != nil {
		return errors.Internal("Failed to update chat", fmt.Errorf("%s: %w", op, err))
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return errors.NotFound("Chat", nil)
	}
	return nil
}

// normalizeChat puts timestamps in UTC; pgx scans timestamptz in local time.
func normalizeChat(c *entity.Chat) *entity.Chat {
	c.CreatedAt = c.CreatedAt.UTC()
	if c.LastMessageAt != nil {
		at := c.LastMessageAt.UTC()
		c.LastMessageAt = &at
	}
	return c
}
