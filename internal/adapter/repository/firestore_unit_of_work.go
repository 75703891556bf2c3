package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

type firestoreUnitOfWork struct {
	client *firestore.Client
}

// NewFirestoreUnitOfWork runs each Do in one Firestore transaction.
func NewFirestoreUnitOfWork(client *firestore.Client) repository.UnitOfWork {
	return &firestoreUnitOfWork{
		client: client,
	}
}

// Do runs fn inside a Firestore transaction. Firestore needs every read
// before the first write, so writes are buffered and flushed after fn.
func (u *firestoreUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := u.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		tx := &firestoreTx{client: u.client, tx: t}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.flush()
	})
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return errors.Internal("Failed to commit chat transaction", err)
	}
	return nil
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
	writes []func() error
}

func (t *firestoreTx) AddMessage(_ context.Context, message *entity.Message) error {
	ref := t.client.Collection(chatsCollection).Doc(message.ChatID).Collection(messagesCollection).Doc(message.ID)
	msg := *message
	t.writes = append(t.writes, func() error {
		return t.tx.Create(ref, msg)
	})
	return nil
}

func (t *firestoreTx) UpdateLastMessageTimestamp(_ context.Context, chatID string, at time.Time) (bool, error) {
	ref := t.client.Collection(chatsCollection).Doc(chatID)
	snap, err := t.tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}

	// lastMessageAt only moves forward
	if v, err := snap.DataAt("lastMessageAt"); err == nil {
		if cur, ok := v.(time.Time); ok && !at.After(cur) {
			return true, nil
		}
	}

	t.writes = append(t.writes, func() error {
		return t.tx.Update(ref, []firestore.Update{
			{Path: "lastMessageAt", Value: at},
			{Path: "activityAt", Value: at},
		})
	})
	return true, nil
}

func (t *firestoreTx) flush() error {
	for _, w := range t.writes {
		if err := w(); err != nil {
			return err
		}
	}
	return nil
}
