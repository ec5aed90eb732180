package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	apperrors "chatseek_go_backend/internal/errors"

	"github.com/rs/zerolog"
)

const (
	doneMarker  = "[DONE]"
	errorMarker = "[ERROR]"
)

type StreamOutcome int

const (
	OutcomeCompleted StreamOutcome = iota
	OutcomeFailed
	OutcomeCancelled
)

func (o StreamOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RelayResult carries the text that reached the client and how the stream
// ended.
type RelayResult struct {
	Text    string
	Outcome StreamOutcome
	Err     error
}

// FrameRelay forwards a fragment sequence to a client.
type FrameRelay interface {
	Relay(ctx context.Context, fragments <-chan Fragment) RelayResult
}

// StreamRelay writes server-sent event frames, flushing after each one.
type StreamRelay struct {
	w       http.ResponseWriter
	flusher http.Flusher
	opened  bool
}

func NewStreamRelay(w http.ResponseWriter) *StreamRelay {
	flusher, _ := w.(http.Flusher)
	return &StreamRelay{w: w, flusher: flusher}
}

// Open sends the event-stream headers. It is a no-op after the first call.
func (r *StreamRelay) Open() {
	if r.opened {
		return
	}
	r.opened = true

	h := r.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	r.w.WriteHeader(http.StatusOK)
	r.flush()
}

func (r *StreamRelay) Fragment(text string) error {
	return r.frame(text)
}

func (r *StreamRelay) Done() error {
	return r.frame(doneMarker)
}

func (r *StreamRelay) Error(message string) error {
	return r.frame(errorMarker + " " + message)
}

func (r *StreamRelay) frame(payload string) error {
	r.Open()
	if _, err := fmt.Fprintf(r.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	r.flush()
	return nil
}

func (r *StreamRelay) flush() {
	if r.flusher != nil {
		r.flusher.Flush()
	}
}

// Relay drains fragments into frames until a terminal condition. Text is
// accumulated only from fragments that were written successfully.
func (r *StreamRelay) Relay(ctx context.Context, fragments <-chan Fragment) (result RelayResult) {
	var text strings.Builder

	defer func() {
		if p := recover(); p != nil {
			zerolog.Ctx(ctx).Error().Interface("panic", p).Msg("Recovered panic while relaying generation")
			err := fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, p)
			if r.Error(err.Error()) != nil {
				result = RelayResult{Text: text.String(), Outcome: OutcomeCancelled, Err: apperrors.ErrCancelled}
				return
			}
			result = RelayResult{Text: text.String(), Outcome: OutcomeFailed, Err: err}
		}
	}()

	r.Open()

	for {
		select {
		case <-ctx.Done():
			return RelayResult{Text: text.String(), Outcome: OutcomeCancelled, Err: apperrors.ErrCancelled}
		case f, ok := <-fragments:
			// A producer closes its channel when the caller goes away, so a
			// close after cancellation is not a completion.
			if ctx.Err() != nil {
				return RelayResult{Text: text.String(), Outcome: OutcomeCancelled, Err: apperrors.ErrCancelled}
			}
			switch {
			case !ok || f.Done:
				if err := r.Done(); err != nil {
					return RelayResult{Text: text.String(), Outcome: OutcomeCancelled, Err: apperrors.ErrCancelled}
				}
				return RelayResult{Text: text.String(), Outcome: OutcomeCompleted}
			case f.Err != nil:
				if err := r.Error(f.Err.Error()); err != nil {
					return RelayResult{Text: text.String(), Outcome: OutcomeCancelled, Err: apperrors.ErrCancelled}
				}
				return RelayResult{Text: text.String(), Outcome: OutcomeFailed, Err: f.Err}
			default:
				if err := r.Fragment(f.Text); err != nil {
					return RelayResult{Text: text.String(), Outcome: OutcomeCancelled, Err: apperrors.ErrCancelled}
				}
				text.WriteString(f.Text)
			}
		}
	}
}
