package usecase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/internal/domain/service"
	"pasarchat/internal/infrastructure/ratelimit"
	"pasarchat/pkg/errors"
	"pasarchat/pkg/logger"
)

const (
	DefaultMessagePageSize = 50
	DefaultInboxPageSize   = 20
	MaxPageSize            = 100
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	uow         repository.UnitOfWork
	listingRepo repository.ListingRepository
	sanitizer   service.Sanitizer
	sendLimiter *ratelimit.SlidingWindow
	publisher   EventPublisher
	now         Clock
	tracer      trace.Tracer
}

type ChatOption func(*ChatUseCase)

// WithPublisher sets where realtime events go. Defaults to NoopPublisher.
func WithPublisher(p EventPublisher) ChatOption {
	return func(uc *ChatUseCase) { uc.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now Clock) ChatOption {
	return func(uc *ChatUseCase) { uc.now = now }
}

// WithTracer overrides the global otel tracer.
func WithTracer(t trace.Tracer) ChatOption {
	return func(uc *ChatUseCase) { uc.tracer = t }
}

// NewChatUseCase wires the chat operations to their stores. sendLimiter
// throttles SendMessage per sender.
func NewChatUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	uow repository.UnitOfWork,
	listingRepo repository.ListingRepository,
	sanitizer service.Sanitizer,
	sendLimiter *ratelimit.SlidingWindow,
	opts ...ChatOption,
) *ChatUseCase {
	uc := &ChatUseCase{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		uow:         uow,
		listingRepo: listingRepo,
		sanitizer:   sanitizer,
		sendLimiter: sendLimiter,
		publisher:   NoopPublisher{},
		now:         time.Now,
		tracer:      otel.Tracer("pasarchat/usecase"),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// OpenOrGetChat returns the chat between the caller and otherUserID, creating
// it on first contact. Without a listing the caller is the buyer; with one,
// exactly one of the two must own it and that one is the seller.
func (uc *ChatUseCase) OpenOrGetChat(ctx context.Context, me, otherUserID string, listingID *string) (_ *entity.Chat, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.OpenOrGetChat")
	defer func() { endSpan(span, err) }()

	me = strings.TrimSpace(me)
	otherUserID = strings.TrimSpace(otherUserID)
	if me == "" {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	if otherUserID == "" {
		return nil, errors.Validation("other_user_id is required")
	}
	if me == otherUserID {
		logger.Warn("OpenOrGetChat Error: User %s attempted to create chat with themselves", me)
		return nil, errors.Validation("You cannot create a chat with yourself")
	}

	buyerID, sellerID := me, otherUserID
	if listingID != nil {
		id := strings.TrimSpace(*listingID)
		if id == "" {
			return nil, errors.Validation("listing_id must not be blank")
		}
		listingID = &id

		meOwns, err := uc.listingRepo.IsOwnerOfListing(ctx, me, id)
		if err != nil {
			logger.Error("OpenOrGetChat Error: ownership check for %s on listing %s: %v", me, id, err)
			return nil, err
		}
		otherOwns, err := uc.listingRepo.IsOwnerOfListing(ctx, otherUserID, id)
		if err != nil {
			logger.Error("OpenOrGetChat Error: ownership check for %s on listing %s: %v", otherUserID, id, err)
			return nil, err
		}

		switch {
		case meOwns && !otherOwns:
			buyerID, sellerID = otherUserID, me
		case otherOwns && !meOwns:
			buyerID, sellerID = me, otherUserID
		default:
			return nil, errors.Validation("Invalid participants for listing: exactly one of them must own it")
		}
	}
	span.SetAttributes(attribute.String("chat.buyer_id", buyerID), attribute.String("chat.seller_id", sellerID))

	chat, err := uc.chatRepo.FindByParticipants(ctx, buyerID, sellerID, listingID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		logger.Error("OpenOrGetChat Error: lookup failed: %v", err)
		return nil, err
	}

	chat = &entity.Chat{
		ID:        uuid.New().String(),
		BuyerID:   buyerID,
		SellerID:  sellerID,
		ListingID: listingID,
		CreatedAt: uc.timestamp(),
	}
	if err := uc.chatRepo.Add(ctx, chat); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			// lost a creation race; the winner's chat is the answer
			return uc.chatRepo.FindByParticipants(ctx, buyerID, sellerID, listingID)
		}
		logger.Error("OpenOrGetChat Error: failed to create chat: %v", err)
		return nil, err
	}

	logger.Info("Chat %s opened between buyer %s and seller %s", chat.ID, buyerID, sellerID)
	return chat, nil
}

// SendMessage validates, throttles, sanitizes and stores a message, then
// notifies the chat room and both participants.
func (uc *ChatUseCase) SendMessage(ctx context.Context, chatID, senderID, content string) (_ *entity.Message, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.SendMessage", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer func() { endSpan(span, err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Validation("Message content is required")
	}
	if utf8.RuneCountInString(content) > entity.MaxMessageLength {
		return nil, errors.Validation("Message content must be at most 2000 characters")
	}

	now := uc.timestamp()
	allowed, retryAfter, err := uc.sendLimiter.Allow(ctx, senderID, now)
	if err != nil {
		logger.Error("SendMessage Error: rate limit lookup for %s: %v", senderID, err)
		return nil, err
	}
	if !allowed {
		logger.Warn("SendMessage Rate Limited: User %s must wait %v", senderID, retryAfter)
		return nil, errors.TooManyRequests("Too many messages. Please slow down", retryAfter)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(senderID) {
		logger.Warn("SendMessage Error: User %s is not a participant in chat %s", senderID, chatID)
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	receiverID := chat.OtherParticipant(senderID)

	clean := uc.sanitizer.Sanitize(content)
	if clean == "" {
		return nil, errors.Validation("Message content is empty after sanitization")
	}

	msg := &entity.Message{
		ID:         uuid.New().String(),
		ChatID:     chat.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    clean,
		CreatedAt:  now,
	}
	if chat.ListingID != nil {
		listingID := *chat.ListingID
		msg.ListingID = &listingID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = uc.uow.Do(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.AddMessage(ctx, msg); err != nil {
			return err
		}
		ok, err := tx.UpdateLastMessageTimestamp(ctx, chat.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NotFound("Chat", nil)
		}
		return nil
	})
	if err != nil {
		logger.Error("SendMessage Error: failed to store message in chat %s: %v", chat.ID, err)
		return nil, err
	}

	// committed: the caller's cancellation no longer applies
	uc.publish(context.WithoutCancel(ctx), EventMessageNew, msg,
		ChatRoom(chat.ID), UserRoom(receiverID), UserRoom(senderID))

	return msg, nil
}

// GetMessages pages backwards through a chat, newest first. Membership is
// enforced by the caller.
func (uc *ChatUseCase) GetMessages(ctx context.Context, chatID string, take int, before *time.Time) (_ []*entity.Message, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.GetMessages", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(chatID) == "" {
		return nil, errors.Validation("chat_id is required")
	}
	return uc.messageRepo.GetMessages(ctx, chatID, clampTake(take, DefaultMessagePageSize), before)
}

// MarkRead flags every unread message addressed to readerID up to upTo and
// always announces the read, even when nothing changed.
func (uc *ChatUseCase) MarkRead(ctx context.Context, chatID, readerID string, upTo time.Time) (_ int, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.MarkRead", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(chatID) == "" {
		return 0, errors.Validation("chat_id is required")
	}

	count, err := uc.messageRepo.MarkReadUpTo(ctx, chatID, readerID, upTo)
	if err != nil {
		logger.Error("MarkRead Error: chat %s reader %s: %v", chatID, readerID, err)
		return 0, err
	}

	event := MessageReadEvent{ChatID: chatID, ReaderID: readerID, UpTo: upTo, Count: count}
	rooms := []string{ChatRoom(chatID)}

	pubCtx := context.WithoutCancel(ctx)
	chat, err := uc.chatRepo.GetByID(pubCtx, chatID)
	switch {
	case err == nil && chat.IsParticipant(readerID):
		event.OtherUserID = chat.OtherParticipant(readerID)
		rooms = append(rooms, UserRoom(event.OtherUserID))
	case err != nil && !errors.Is(err, errors.CodeNotFound):
		logger.Warn("MarkRead: could not resolve other participant of chat %s: %v", chatID, err)
	}

	uc.publish(pubCtx, EventMessageRead, event, rooms...)
	return count, nil
}

// GetInbox lists the user's chats by most recent activity.
func (uc *ChatUseCase) GetInbox(ctx context.Context, userID string, take, skip int) (_ []*entity.Chat, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.GetInbox")
	defer func() { endSpan(span, err) }()

	if skip < 0 {
		skip = 0
	}
	return uc.chatRepo.GetInbox(ctx, userID, clampTake(take, DefaultInboxPageSize), skip)
}

// GetChatForParticipant loads a chat the user takes part in.
func (uc *ChatUseCase) GetChatForParticipant(ctx context.Context, chatID, userID string) (_ *entity.Chat, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.GetChatForParticipant", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(chatID) == "" {
		return nil, errors.Validation("chat_id is required")
	}
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	return chat, nil
}

// SetArchived hides or restores the chat for the caller only.
func (uc *ChatUseCase) SetArchived(ctx context.Context, chatID, userID string, archived bool) (_ *entity.Chat, err error) {
	ctx, span := uc.tracer.Start(ctx, "ChatUseCase.SetArchived", trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer func() { endSpan(span, err) }()

	chat, err := uc.GetChatForParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	role, _ := chat.RoleOf(userID)
	if chat.ArchivedFor(role) == archived {
		return chat, nil
	}
	if err := uc.chatRepo.SetArchived(ctx, chatID, role, archived); err != nil {
		logger.Error("SetArchived Error: chat %s: %v", chatID, err)
		return nil, err
	}

	chat.SetArchivedFor(role, archived)
	return chat, nil
}

func (uc *ChatUseCase) publish(ctx context.Context, event string, payload interface{}, rooms ...string) {
	for _, room := range rooms {
		if err := uc.publisher.Publish(ctx, room, event, payload); err != nil {
			logger.L().Warn("Publish failed", "event", event, "room", room, logger.Err(err))
		}
	}
}

// timestamp is truncated to what every store can round-trip.
func (uc *ChatUseCase) timestamp() time.Time {
	return uc.now().UTC().Truncate(time.Microsecond)
}

func clampTake(take, def int) int {
	if take <= 0 {
		return def
	}
	if take > MaxPageSize {
		return MaxPageSize
	}
	return take
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
