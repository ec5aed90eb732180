package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "chatseek_go_backend/internal/errors"
	"chatseek_go_backend/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// responseIterator is the part of *genai.GenerateContentResponseIterator we use.
type responseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client       *genai.Client
	defaultModel string
	timeout      time.Duration
	openStream   func(ctx context.Context, req GenerationRequest) responseIterator
}

func NewGeminiClient(client *genai.Client, defaultModel string, timeout time.Duration) *GeminiClient {
	g := &GeminiClient{
		client:       client,
		defaultModel: defaultModel,
		timeout:      timeout,
	}
	g.openStream = g.sendMessageStream
	return g
}

func (g *GeminiClient) sendMessageStream(ctx context.Context, req GenerationRequest) responseIterator {
	name := req.Model
	if name == "" {
		name = g.defaultModel
	}
	model := g.client.GenerativeModel(name)
	if req.SystemDirective != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemDirective)}}
	}

	session := model.StartChat()
	session.History = toGeminiHistory(req.Context)
	return session.SendMessageStream(ctx, genai.Text(req.Prompt))
}

// toGeminiHistory maps stored roles onto Gemini's user/model pair. System
// turns in history are sent as user content since Gemini only accepts the
// directive through SystemInstruction.
func toGeminiHistory(turns []ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == models.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}
	return history
}

func (g *GeminiClient) Stream(ctx context.Context, req GenerationRequest) <-chan Fragment {
	out := make(chan Fragment, fragmentBufferSize)

	go func() {
		defer close(out)

		reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		if err := pumpGemini(reqCtx, ctx, g.openStream(reqCtx, req), out); err != nil {
			if ctx.Err() != nil {
				return
			}
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Gemini generation failed")
			send(ctx, out, Fragment{Err: fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)})
		}
	}()

	return out
}

// pumpGemini forwards text parts until the iterator is exhausted. Sends are
// bound to the caller's context, not the request timeout.
func pumpGemini(reqCtx, callerCtx context.Context, it responseIterator, out chan<- Fragment) error {
	for {
		if err := reqCtx.Err(); err != nil {
			return err
		}
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			send(callerCtx, out, Fragment{Done: true})
			return nil
		}
		if err != nil {
			return err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok || text == "" {
					continue
				}
				if !send(callerCtx, out, Fragment{Text: string(text)}) {
					return callerCtx.Err()
				}
			}
		}
	}
}
