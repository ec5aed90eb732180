package services

import (
	"context"
	"strings"
	"time"

	"chatseek_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionCoordinator runs one streamed chat turn per request. It holds no
// per-chat state; concurrent submissions to the same chat may interleave.
type SessionCoordinator struct {
	store      ChatStore
	generator  Generator
	contexts   *ContextWindowBuilder
	persister  *TurnPersister
	windowSize int
}

func NewSessionCoordinator(store ChatStore, generator Generator, publisher Publisher, windowSize int) *SessionCoordinator {
	if windowSize <= 0 {
		windowSize = DefaultContextWindowSize
	}
	return &SessionCoordinator{
		store:      store,
		generator:  generator,
		contexts:   NewContextWindowBuilder(store),
		persister:  NewTurnPersister(store, publisher),
		windowSize: windowSize,
	}
}

func (c *SessionCoordinator) WithClock(now func() time.Time) *SessionCoordinator {
	c.persister.WithClock(now)
	return c
}

// ChatTurnSession is a submitted turn whose reply has not been streamed yet.
type ChatTurnSession struct {
	coordinator *SessionCoordinator
	chat        *models.Chat
	userTurn    *models.Message
	request     GenerationRequest
}

// Submit verifies ownership, stores the user turn and prepares the generation
// request. Any error here happens before a stream is opened.
func (c *SessionCoordinator) Submit(ctx context.Context, chatID, callerID uuid.UUID, text string) (*ChatTurnSession, error) {
	chat, err := c.store.GetChatForOwner(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	userTurn, err := c.persister.WriteTurn(ctx, chat, models.RoleUser, text)
	if err != nil {
		return nil, err
	}

	history := c.contexts.Build(ctx, chat.ID, userTurn.ID, c.windowSize)

	var directive string
	if chat.SystemPrompt != nil {
		directive = *chat.SystemPrompt
	}

	return &ChatTurnSession{
		coordinator: c,
		chat:        chat,
		userTurn:    userTurn,
		request: GenerationRequest{
			Model:           chat.Model,
			SystemDirective: directive,
			Context:         history,
			Prompt:          text,
		},
	}, nil
}

func (s *ChatTurnSession) UserTurn() *models.Message {
	return s.userTurn
}

func (s *ChatTurnSession) Request() GenerationRequest {
	return s.request
}

// Stream opens generation and relays it. Once the terminal frame is written
// the reply is stored, unless the caller went away first.
func (s *ChatTurnSession) Stream(ctx context.Context, relay FrameRelay) StreamOutcome {
	log := zerolog.Ctx(ctx).With().Str("chat_id", s.chat.ID.String()).Logger()

	genCtx, cancel := context.WithCancel(ctx)
	result := relay.Relay(genCtx, s.coordinator.generator.Stream(genCtx, s.request))
	cancel()

	switch result.Outcome {
	case OutcomeCancelled:
		log.Info().Msg("Client disconnected, discarding partial reply")
		return result.Outcome
	case OutcomeFailed:
		log.Warn().Err(result.Err).Int("partial_length", len(result.Text)).Msg("Generation ended with an error")
	}

	s.finalize(context.WithoutCancel(ctx), result.Text)
	return result.Outcome
}

func (s *ChatTurnSession) finalize(ctx context.Context, text string) {
	reply := strings.TrimSpace(text)
	if reply == "" {
		return
	}
	if _, err := s.coordinator.persister.WriteTurn(ctx, s.chat, models.RoleAssistant, reply); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("chat_id", s.chat.ID.String()).Msg("Failed to store assistant reply")
	}
}
