package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatseek_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChatActivity is published whenever a chat's freshness moves.
type ChatActivity struct {
	ChatID    uuid.UUID   `json:"chatId"`
	Role      models.Role `json:"role"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func ActivityTopic(userID uuid.UUID) string {
	return "chat_activity_" + userID.String()
}

type TurnPersister struct {
	store     ChatStore
	publisher Publisher
	now       func() time.Time
}

func NewTurnPersister(store ChatStore, publisher Publisher) *TurnPersister {
	return &TurnPersister{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests for deterministic order.
func (p *TurnPersister) WithClock(now func() time.Time) *TurnPersister {
	p.now = now
	return p
}

// EstimateTokens approximates token usage as the whitespace word count.
func EstimateTokens(content string) int {
	return len(strings.Fields(content))
}

// WriteTurn stores a turn and then moves the chat's freshness to the turn's
// creation time. The two writes are independent.
func (p *TurnPersister) WriteTurn(ctx context.Context, chat *models.Chat, role models.Role, content string) (*models.Message, error) {
	turn := &models.Message{
		ChatID:    chat.ID,
		Role:      role,
		Content:   content,
		Tokens:    EstimateTokens(content),
		CreatedAt: p.now(),
	}
	if err := p.store.CreateTurn(ctx, turn); err != nil {
		return nil, fmt.Errorf("failed to save %s turn: %w", role, err)
	}

	if err := p.TouchFreshness(ctx, chat, turn.CreatedAt); err != nil {
		// The turn is already durable; a stale freshness is tolerable.
		zerolog.Ctx(ctx).Error().Err(err).Str("chat_id", chat.ID.String()).Msg("Failed to update chat freshness")
	} else if p.publisher != nil {
		p.publisher.Publish(ActivityTopic(chat.UserID), ChatActivity{
			ChatID:    chat.ID,
			Role:      role,
			UpdatedAt: turn.CreatedAt,
		})
	}
	return turn, nil
}

func (p *TurnPersister) TouchFreshness(ctx context.Context, chat *models.Chat, ts time.Time) error {
	if err := p.store.UpdateChatFreshness(ctx, chat.ID, ts); err != nil {
		return err
	}
	chat.UpdatedAt = ts
	return nil
}
