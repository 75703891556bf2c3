package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// chatDoc adds the denormalised fields the inbox query needs.
type chatDoc struct {
	entity.Chat
	Participants []string  `firestore:"participants"`
	ActivityAt   time.Time `firestore:"activityAt"`
}

func newChatDoc(c *entity.Chat) chatDoc {
	return chatDoc{
		Chat:         *c,
		Participants: []string{c.BuyerID, c.SellerID},
		ActivityAt:   c.ActivityAt(),
	}
}

type firestoreChatRepository struct {
	client *firestore.Client
}

// NewFirestoreChatRepository stores chats as documents in the chats collection.
func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) participantsQuery(buyerID, sellerID string, listingID *string) firestore.Query {
	q := r.client.Collection(chatsCollection).
		Where("buyerId", "==", buyerID).
		Where("sellerId", "==", sellerID)
	if listingID != nil {
		return q.Where("listingId", "==", *listingID)
	}
	return q.Where("listingId", "==", nil)
}

func (r *firestoreChatRepository) FindByParticipants(ctx context.Context, buyerID, sellerID string, listingID *string) (*entity.Chat, error) {
	iter := r.participantsQuery(buyerID, sellerID, listingID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Chat", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to find chat", err)
	}
	return decodeChat(doc)
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection(chatsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}
	return decodeChat(doc)
}

// Add checks the participant triple and creates the document in one
// transaction so concurrent opens cannot both succeed.
func (r *firestoreChatRepository) Add(ctx context.Context, chat *entity.Chat) error {
	ref := r.client.Collection(chatsCollection).Doc(chat.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.participantsQuery(chat.BuyerID, chat.SellerID, chat.ListingID).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errors.Conflict("Chat already exists")
		}
		return tx.Create(ref, newChatDoc(chat))
	})
	if err != nil {
		if errors.Is(err, errors.CodeConflict) {
			return err
		}
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat already exists")
		}
		return errors.Internal("Failed to create chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) GetInbox(ctx context.Context, userID string, take, skip int) ([]*entity.Chat, error) {
	query := r.client.Collection(chatsCollection).
		Where("participants", "array-contains", userID).
		OrderBy("activityAt", firestore.Desc).
		Limit(take)
	if skip > 0 {
		query = query.Offset(skip)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	chats := []*entity.Chat{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate chats", err)
		}
		chat, err := decodeChat(doc)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *firestoreChatRepository) SetArchived(ctx context.Context, chatID string, role entity.ParticipantRole, archived bool) error {
	field := "sellerArchived"
	if role == entity.RoleBuyer {
		field = "buyerArchived"
	}

	_, err := r.client.Collection(chatsCollection).Doc(chatID).Update(ctx, []firestore.Update{
		{Path: field, Value: archived},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to update chat", err)
	}
	return nil
}

func decodeChat(doc *firestore.DocumentSnapshot) (*entity.Chat, error) {
	var cd chatDoc
	if err := doc.DataTo(&cd); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat := cd.Chat
	chat.ID = doc.Ref.ID
	return &chat, nil
}
