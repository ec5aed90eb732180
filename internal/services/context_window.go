package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const DefaultContextWindowSize = 10

// ContextWindowBuilder selects the slice of history handed to the engine.
type ContextWindowBuilder struct {
	store ChatStore
}

func NewContextWindowBuilder(store ChatStore) *ContextWindowBuilder {
	return &ContextWindowBuilder{store: store}
}

// Build returns up to windowSize of the most recent turns in chronological
// order, minus excludeTurnID. It never fails; storage errors yield an empty
// history.
func (b *ContextWindowBuilder) Build(ctx context.Context, chatID, excludeTurnID uuid.UUID, windowSize int) []ChatMessage {
	if windowSize <= 0 {
		windowSize = DefaultContextWindowSize
	}

	recent, err := b.store.GetRecentTurns(ctx, chatID, windowSize)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("chat_id", chatID.String()).Msg("Failed to load context, continuing without history")
		return []ChatMessage{}
	}

	history := make([]ChatMessage, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].ID == excludeTurnID {
			continue
		}
		history = append(history, ChatMessage{Role: recent[i].Role, Content: recent[i].Content})
	}
	return history
}
