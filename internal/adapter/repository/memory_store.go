package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

// MemoryStore keeps chats, messages and listing ownership in process memory.
// It satisfies every store contract and is used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message
	listings map[string]string
}

var (
	_ repository.ChatRepository    = (*MemoryStore)(nil)
	_ repository.MessageRepository = (*MemoryStore)(nil)
	_ repository.UnitOfWork        = (*MemoryStore)(nil)
	_ repository.ListingRepository = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store with no listings.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
		listings: make(map[string]string),
	}
}

// PutListing records sellerID as the owner of listingID.
func (s *MemoryStore) PutListing(listingID, sellerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listingID] = sellerID
}

func (s *MemoryStore) IsOwnerOfListing(ctx context.Context, userID, listingID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.listings[listingID]
	return ok && owner == userID, nil
}

func (s *MemoryStore) FindByParticipants(ctx context.Context, buyerID, sellerID string, listingID *string) (*entity.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c := s.findLocked(buyerID, sellerID, listingID); c != nil {
		return cloneChat(c), nil
	}
	return nil, errors.NotFound("Chat", nil)
}

func (s *MemoryStore) findLocked(buyerID, sellerID string, listingID *string) *entity.Chat {
	for _, c := range s.chats {
		if c.BuyerID == buyerID && c.SellerID == sellerID && sameListing(c.ListingID, listingID) {
			return c
		}
	}
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(c), nil
}

func (s *MemoryStore) Add(ctx context.Context, chat *entity.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chat.ID]; ok {
		return errors.Conflict("Chat already exists")
	}
	if s.findLocked(chat.BuyerID, chat.SellerID, chat.ListingID) != nil {
		return errors.Conflict("Chat already exists")
	}
	s.chats[chat.ID] = cloneChat(chat)
	return nil
}

func (s *MemoryStore) GetInbox(ctx context.Context, userID string, take, skip int) ([]*entity.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var mine []*entity.Chat
	for _, c := range s.chats {
		if c.IsParticipant(userID) {
			mine = append(mine, cloneChat(c))
		}
	}
	s.mu.RUnlock()

	sort.Slice(mine, func(i, j int) bool {
		ai, aj := mine[i].ActivityAt(), mine[j].ActivityAt()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return mine[i].ID > mine[j].ID
	})

	if skip >= len(mine) {
		return []*entity.Chat{}, nil
	}
	mine = mine[skip:]
	if take < len(mine) {
		mine = mine[:take]
	}
	return mine, nil
}

func (s *MemoryStore) SetArchived(ctx context.Context, chatID string, role entity.ParticipantRole, archived bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	c.SetArchivedFor(role, archived)
	return nil
}

func (s *MemoryStore) CountSentSince(ctx context.Context, senderID string, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.SenderID == senderID && !m.CreatedAt.Before(since) {
				n++
			}
		}
	}
	return n, nil
}

func (s *MemoryStore) OldestSentSince(ctx context.Context, senderID string, since time.Time) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var oldest time.Time
	found := false
	for _, msgs := range s.messages {
		for _, m := range msgs {
			if m.SenderID != senderID || m.CreatedAt.Before(since) {
				continue
			}
			if !found || m.CreatedAt.Before(oldest) {
				oldest, found = m.CreatedAt, true
			}
		}
	}
	return oldest, found, nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, chatID string, take int, before *time.Time) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[chatID]
	out := make([]*entity.Message, 0, take)
	// stored in insertion order, which is CreatedAt order
	for i := len(msgs) - 1; i >= 0 && len(out) < take; i-- {
		m := msgs[i]
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (s *MemoryStore) MarkReadUpTo(ctx context.Context, chatID, readerID string, upTo time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.messages[chatID] {
		if m.ReceiverID == readerID && !m.IsRead && !m.CreatedAt.After(upTo) {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

// Do stages writes and applies them under one lock when fn succeeds.
func (s *MemoryStore) Do(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &memoryTx{store: s, lastMessageAt: make(map[string]time.Time)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID := range tx.lastMessageAt {
		if _, ok := s.chats[chatID]; !ok {
			return errors.NotFound("Chat", nil)
		}
	}
	for _, m := range tx.messages {
		s.insertMessageLocked(cloneMessage(m))
	}
	for chatID, at := range tx.lastMessageAt {
		chat := s.chats[chatID]
		if chat.LastMessageAt != nil && !at.After(*chat.LastMessageAt) {
			continue
		}
		at := at
		chat.LastMessageAt = &at
	}
	return nil
}

func (s *MemoryStore) insertMessageLocked(m *entity.Message) {
	msgs := s.messages[m.ChatID]
	i := sort.Search(len(msgs), func(i int) bool { return msgs[i].CreatedAt.After(m.CreatedAt) })
	msgs = append(msgs, nil)
	copy(msgs[i+1:], msgs[i:])
	msgs[i] = m
	s.messages[m.ChatID] = msgs
}

type memoryTx struct {
	store         *MemoryStore
	messages      []*entity.Message
	lastMessageAt map[string]time.Time
}

func (tx *memoryTx) AddMessage(ctx context.Context, message *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.messages = append(tx.messages, cloneMessage(message))
	return nil
}

func (tx *memoryTx) UpdateLastMessageTimestamp(ctx context.Context, chatID string, at time.Time) (bool, error) {
	if _, err := tx.store.GetByID(ctx, chatID); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	if cur, ok := tx.lastMessageAt[chatID]; !ok || at.After(cur) {
		tx.lastMessageAt[chatID] = at
	}
	return true, nil
}

func sameListing(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneChat(c *entity.Chat) *entity.Chat {
	cp := *c
	if c.ListingID != nil {
		id := *c.ListingID
		cp.ListingID = &id
	}
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		cp.LastMessageAt = &at
	}
	return &cp
}

func cloneMessage(m *entity.Message) *entity.Message {
	cp := *m
	if m.ListingID != nil {
		id := *m.ListingID
		cp.ListingID = &id
	}
	return &cp
}
