package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

// Firestore caps a transaction at 500 writes.
const markReadBatchSize = 500

type firestoreMessageRepository struct {
	client *firestore.Client
}

// NewFirestoreMessageRepository reads each chat's messages subcollection.
func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(chatID string) *firestore.CollectionRef {
	return r.client.Collection(chatsCollection).Doc(chatID).Collection(messagesCollection)
}

// CountSentSince spans every chat's messages subcollection.
func (r *firestoreMessageRepository) CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error) {
	docs, err := r.client.CollectionGroup(messagesCollection).
		Where("senderId", "==", senderID).
		Where("createdAt", ">=", since).
		Select().
		Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to count sent messages", err)
	}
	return len(docs), nil
}

// OldestSentSince needs the same collection group index as CountSentSince.
func (r *firestoreMessageRepository) OldestSentSince(ctx context.Context, senderID string, since time.Time) (time.Time, bool, error) {
	iter := r.client.CollectionGroup(messagesCollection).
		Where("senderId", "==", senderID).
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Asc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Internal("Failed to look up sent messages", err)
	}
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return time.Time{}, false, errors.Internal("Failed to decode message", err)
	}
	return msg.CreatedAt.UTC(), true, nil
}

func (r *firestoreMessageRepository) GetMessages(ctx context.Context, chatID string, take int, before *time.Time) ([]*entity.Message, error) {
	query := r.messages(chatID).OrderBy("createdAt", firestore.Desc).Limit(take)
	if before != nil {
		query = query.Where("createdAt", "<", *before)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := []*entity.Message{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}
	return messages, nil
}

func (r *firestoreMessageRepository) MarkReadUpTo(ctx context.Context, chatID, readerID string, upTo time.Time) (int, error) {
	query := r.messages(chatID).
		Where("receiverId", "==", readerID).
		Where("isRead", "==", false).
		Where("createdAt", "<=", upTo).
		Limit(markReadBatchSize)

	total := 0
	for {
		var batch int
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			docs, err := tx.Documents(query).GetAll()
			if err != nil {
				return err
			}
			batch = len(docs)
			for _, doc := range docs {
				if err := tx.Update(doc.Ref, []firestore.Update{{Path: "isRead", Value: true}}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return total, errors.Internal("Failed to mark messages as read", err)
		}

		total += batch
		if batch < markReadBatchSize {
			return total, nil
		}
	}
}
