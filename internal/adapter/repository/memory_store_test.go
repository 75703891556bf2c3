package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pasarchat/internal/domain/entity"
	"pasarchat/internal/domain/repository"
	"pasarchat/pkg/errors"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func addMessage(t *testing.T, s *MemoryStore, m *entity.Message) {
	t.Helper()
	err := s.Do(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		if err := tx.AddMessage(ctx, m); err != nil {
			return err
		}
		_, err := tx.UpdateLastMessageTimestamp(ctx, m.ChatID, m.CreatedAt)
		return err
	})
	require.NoError(t, err)
}

func TestMemoryStoreChatUniqueness(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "c1", BuyerID: "b", SellerID: "s", CreatedAt: t0}))
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "c2", BuyerID: "b", SellerID: "s", ListingID: strPtr("l1"), CreatedAt: t0}))

	err := s.Add(ctx, &entity.Chat{ID: "c3", BuyerID: "b", SellerID: "s", CreatedAt: t0})
	assert.True(t, errors.Is(err, errors.CodeConflict))

	got, err := s.FindByParticipants(ctx, "b", "s", strPtr("l1"))
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ID)

	got, err = s.FindByParticipants(ctx, "b", "s", nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	_, err = s.FindByParticipants(ctx, "s", "b", nil)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "c1", BuyerID: "b", SellerID: "s", CreatedAt: t0}))

	got, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	got.BuyerID = "mallory"

	again, err := s.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "b", again.BuyerID)
}

func TestMemoryStoreUnitOfWork(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "c1", BuyerID: "b", SellerID: "s", CreatedAt: t0}))

	t.Run("rolls back on error", func(t *testing.T) {
		err := s.Do(ctx, func(ctx context.Context, tx repository.Tx) error {
			require.NoError(t, tx.AddMessage(ctx, &entity.Message{ID: "m0", ChatID: "c1", SenderID: "b", CreatedAt: t0}))
			ok, err := tx.UpdateLastMessageTimestamp(ctx, "missing", t0)
			require.NoError(t, err)
			assert.False(t, ok)
			return errors.NotFound("Chat", nil)
		})
		assert.Error(t, err)

		msgs, err := s.GetMessages(ctx, "c1", 10, nil)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("commits both writes", func(t *testing.T) {
		addMessage(t, s, &entity.Message{ID: "m1", ChatID: "c1", SenderID: "b", ReceiverID: "s", CreatedAt: t0.Add(time.Minute)})

		chat, err := s.GetByID(ctx, "c1")
		require.NoError(t, err)
		require.NotNil(t, chat.LastMessageAt)
		assert.Equal(t, t0.Add(time.Minute), *chat.LastMessageAt)
	})

	t.Run("lastMessageAt never moves backwards", func(t *testing.T) {
		addMessage(t, s, &entity.Message{ID: "late", ChatID: "c1", SenderID: "b", ReceiverID: "s", CreatedAt: t0.Add(time.Hour)})
		addMessage(t, s, &entity.Message{ID: "early", ChatID: "c1", SenderID: "s", ReceiverID: "b", CreatedAt: t0.Add(30 * time.Minute)})

		err := s.Do(ctx, func(ctx context.Context, tx repository.Tx) error {
			if _, err := tx.UpdateLastMessageTimestamp(ctx, "c1", t0.Add(2*time.Hour)); err != nil {
				return err
			}
			_, err := tx.UpdateLastMessageTimestamp(ctx, "c1", t0.Add(90*time.Minute))
			return err
		})
		require.NoError(t, err)

		chat, err := s.GetByID(ctx, "c1")
		require.NoError(t, err)
		require.NotNil(t, chat.LastMessageAt)
		assert.Equal(t, t0.Add(2*time.Hour), *chat.LastMessageAt)

		addMessage(t, s, &entity.Message{ID: "stale", ChatID: "c1", SenderID: "b", ReceiverID: "s", CreatedAt: t0.Add(time.Minute)})
		chat, err = s.GetByID(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, t0.Add(2*time.Hour), *chat.LastMessageAt)
	})

	t.Run("cancelled context commits nothing", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.Do(cctx, func(ctx context.Context, tx repository.Tx) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStoreMessages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "c1", BuyerID: "b", SellerID: "s", CreatedAt: t0}))

	for i := 0; i < 5; i++ {
		sender, receiver := "b", "s"
		if i%2 == 1 {
			sender, receiver = "s", "b"
		}
		addMessage(t, s, &entity.Message{
			ID: string(rune('a' + i)), ChatID: "c1", SenderID: sender, ReceiverID: receiver,
			CreatedAt: t0.Add(time.Duration(i) * time.Second),
		})
	}

	page, err := s.GetMessages(ctx, "c1", 2, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].ID)
	assert.Equal(t, "d", page[1].ID)

	page, err = s.GetMessages(ctx, "c1", 10, &page[1].CreatedAt)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "c", page[0].ID)

	n, err := s.CountSentSince(ctx, "b", t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	oldest, ok, err := s.OldestSentSince(ctx, "b", t0.Add(time.Second))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t0.Add(2*time.Second), oldest)

	_, ok, err = s.OldestSentSince(ctx, "nobody", t0)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = s.MarkReadUpTo(ctx, "c1", "s", t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.MarkReadUpTo(ctx, "c1", "s", t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStoreMessageListingIsCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "c1", BuyerID: "b", SellerID: "s", ListingID: strPtr("l1"), CreatedAt: t0}))

	m := &entity.Message{ID: "m1", ChatID: "c1", SenderID: "b", ReceiverID: "s", ListingID: strPtr("l1"), CreatedAt: t0}
	addMessage(t, s, m)
	*m.ListingID = "changed"

	page, err := s.GetMessages(ctx, "c1", 10, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.NotNil(t, page[0].ListingID)
	assert.Equal(t, "l1", *page[0].ListingID)

	*page[0].ListingID = "mutated"
	again, err := s.GetMessages(ctx, "c1", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, "l1", *again[0].ListingID)
}

func TestMemoryStoreInboxAndArchive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "old", BuyerID: "b", SellerID: "s1", CreatedAt: t0}))
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "new", BuyerID: "b", SellerID: "s2", CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, s.Add(ctx, &entity.Chat{ID: "other", BuyerID: "x", SellerID: "y", CreatedAt: t0}))
	addMessage(t, s, &entity.Message{ID: "m", ChatID: "old", SenderID: "s1", ReceiverID: "b", CreatedAt: t0.Add(2 * time.Hour)})

	inbox, err := s.GetInbox(ctx, "b", 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "old", inbox[0].ID)
	assert.Equal(t, "new", inbox[1].ID)

	inbox, err = s.GetInbox(ctx, "b", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	require.NoError(t, s.SetArchived(ctx, "old", entity.RoleBuyer, true))
	chat, err := s.GetByID(ctx, "old")
	require.NoError(t, err)
	assert.True(t, chat.BuyerArchived)
	assert.False(t, chat.SellerArchived)

	assert.True(t, errors.Is(s.SetArchived(ctx, "missing", entity.RoleBuyer, true), errors.CodeNotFound))
}

func TestMemoryStoreListingOwnership(t *testing.T) {
	s := NewMemoryStore()
	s.PutListing("l1", "seller")

	ok, err := s.IsOwnerOfListing(context.Background(), "seller", "l1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsOwnerOfListing(context.Background(), "buyer", "l1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsOwnerOfListing(context.Background(), "seller", "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}
