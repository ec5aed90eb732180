package services

import (
	"context"
	"time"

	"chatseek_go_backend/internal/models"

	"github.com/google/uuid"
)

// ChatStore is the storage contract the streaming core relies on. Each call
// is a single-row read or write; no cross-call transaction is assumed.
type ChatStore interface {
	GetChatForOwner(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error)
	CreateTurn(ctx context.Context, turn *models.Message) error
	UpdateChatFreshness(ctx context.Context, chatID uuid.UUID, ts time.Time) error
	GetRecentTurns(ctx context.Context, chatID uuid.UUID, limit int) ([]models.Message, error)
}

// Generator turns a request into a finite, non-restartable sequence of
// fragments. The channel is always closed; failures arrive as a single
// fragment with Err set.
type Generator interface {
	Stream(ctx context.Context, req GenerationRequest) <-chan Fragment
}

// Publisher fans chat activity out to interested listeners.
type Publisher interface {
	Publish(topic string, msg interface{})
}

// ModelLister is implemented by engines that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) []ModelInfo
	CheckHealth(ctx context.Context) bool
}
