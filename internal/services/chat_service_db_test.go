package services

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "chatseek_go_backend/internal/errors"
	"chatseek_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestChatService_ListChatsForOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChatServiceDB(db)
	user, _ := seedUserAndChat(t, db)
	other, _ := seedUserAndChat(t, db)

	base := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	var created []*models.Chat
	for i := 0; i < 3; i++ {
		chat := &models.Chat{Title: "chat", Model: "llama3", UserID: user.ID}
		require.NoError(t, store.CreateChat(ctx, chat))
		require.NoError(t, store.UpdateChatFreshness(ctx, chat.ID, base.Add(time.Duration(i)*time.Minute)))
		created = append(created, chat)
	}

	// The seeded chat plus three new ones.
	chats, total, err := store.ListChatsForOwner(ctx, user.ID, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, chats, 2)
	assert.Equal(t, created[2].ID, chats[0].ID)
	assert.Equal(t, created[1].ID, chats[1].ID)

	chats, _, err = store.ListChatsForOwner(ctx, user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, created[0].ID, chats[0].ID)

	chats, total, err = store.ListChatsForOwner(ctx, other.ID, 0, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, chats, 1)
}

func TestChatService_GetChatForOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChatServiceDB(db)
	user, chat := seedUserAndChat(t, db)

	got, err := store.GetChatForOwner(ctx, chat.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.Title, got.Title)

	_, err = store.GetChatForOwner(ctx, chat.ID, uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	var customErr *apperrors.CustomError
	require.True(t, errors.As(err, &customErr))
	assert.Equal(t, "Chat not found", customErr.Message)
}

func TestChatService_UpdateChat(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChatServiceDB(db)
	user, chat := seedUserAndChat(t, db)
	before := chat.UpdatedAt

	time.Sleep(10 * time.Millisecond)
	updated, err := store.UpdateChat(ctx, chat.ID, user.ID, ChatPatch{Title: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "llama3", updated.Model, "fields absent from the patch are kept")
	assert.Nil(t, updated.SystemPrompt)
	assert.True(t, updated.UpdatedAt.After(before))

	updated, err = store.UpdateChat(ctx, chat.ID, user.ID, ChatPatch{Model: strPtr("mistral"), SystemPrompt: strPtr("be terse")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "mistral", updated.Model)
	require.NotNil(t, updated.SystemPrompt)
	assert.Equal(t, "be terse", *updated.SystemPrompt)

	_, err = store.UpdateChat(ctx, chat.ID, uuid.New(), ChatPatch{Title: strPtr("stolen")})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestChatService_DeleteChat(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChatServiceDB(db)
	user, chat := seedUserAndChat(t, db)
	persister := NewTurnPersister(store, nil).WithClock(newStepClock().Now)
	writeTurns(t, persister, chat, 3)

	err := store.DeleteChat(ctx, chat.ID, uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, store.DeleteChat(ctx, chat.ID, user.ID))

	_, err = store.GetChatForOwner(ctx, chat.ID, user.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Zero(t, countTurns(t, db, chat.ID, ""))
}

func TestChatService_Turns(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewChatServiceDB(db)
	_, chat := seedUserAndChat(t, db)
	persister := NewTurnPersister(store, nil).WithClock(newStepClock().Now)
	turns := writeTurns(t, persister, chat, 5)

	err := store.CreateTurn(ctx, &models.Message{ChatID: chat.ID, Role: models.Role("robot"), Content: "beep"})
	assert.Error(t, err)

	count, err := store.CountTurns(ctx, chat.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	page, total, err := store.ListTurns(ctx, chat.ID, 1, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 3)
	for i, turn := range page {
		assert.Equal(t, turns[i+1].ID, turn.ID)
	}

	recent, err := store.GetRecentTurns(ctx, chat.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, turns[4].ID, recent[0].ID)
	assert.Equal(t, turns[3].ID, recent[1].ID)
}
